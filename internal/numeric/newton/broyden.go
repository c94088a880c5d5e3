package newton

import (
	"fmt"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SystemParams configures a Broyden solve of F(x) = 0.
type SystemParams struct {
	// Tol is the residual-norm stopping tolerance. Defaults to 1e-8.
	Tol float64

	// MaxIter bounds the number of iterations. Defaults to 200.
	MaxIter int

	// Recorder, when non-nil, receives every iterate. F carries the
	// residual norm.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled once per iteration; a non-nil
	// error aborts the run with that error and the current iterate.
	Interrupt func() error
}

func (p SystemParams) withDefaults() SystemParams {
	if p.Tol <= 0 {
		p.Tol = 1e-8
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 200
	}
	return p
}

// Broyden solves the square nonlinear system F(x) = 0 by Broyden's good
// method: the initial Jacobian approximation is a forward-difference
// Jacobian, each step solves B·s = -F(x) by LU, and B is updated with
// the rank-1 secant correction
//
//	B ← B + (y - B·s)·sᵀ / sᵀs.
//
// F writes its value at x into the destination slice passed to it.
func Broyden(F func(dst, x []float64), x0 []float64, p SystemParams) (*numeric.Result, error) {
	p = p.withDefaults()
	n := len(x0)

	x := make([]float64, n)
	copy(x, x0)
	fx := make([]float64, n)
	fNext := make([]float64, n)
	s := make([]float64, n)
	y := make([]float64, n)

	b := mat.NewDense(n, n, nil)
	numeric.FDJacobian(b, F, x)

	F(fx, x)

	var lu mat.LU
	rhs := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, s)
	bs := mat.NewVecDense(n, nil)

	for k := 0; k < p.MaxIter; k++ {
		res := floats.Norm(fx, 2)
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return &numeric.Result{X: x, F: res, Iterations: k},
					fmt.Errorf("broyden: interrupted at iteration %d: %w", k, err)
			}
		}
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: x, F: res})
		}
		if res <= p.Tol {
			return &numeric.Result{X: x, F: res, Iterations: k, Converged: true}, nil
		}

		for i, v := range fx {
			rhs.SetVec(i, -v)
		}
		lu.Factorize(b)
		if err := lu.SolveVecTo(step, false, rhs); err != nil {
			// A Condition error still carries a usable solution; only an
			// exactly singular factorization aborts the iteration.
			if _, ok := err.(mat.Condition); !ok {
				return &numeric.Result{X: x, F: res, Iterations: k},
					fmt.Errorf("broyden: jacobian update became singular at iteration %d: %w",
						k, numeric.ErrSingular)
			}
		}

		floats.Add(x, s)
		F(fNext, x)

		// Secant update: y = F(x₊) - F(x), B += (y - B·s)·sᵀ / sᵀs.
		floats.SubTo(y, fNext, fx)
		bs.MulVec(b, step)
		ss := floats.Dot(s, s)
		if ss == 0 {
			// Zero step: the iteration has stalled.
			res := floats.Norm(fNext, 2)
			if res <= p.Tol {
				return &numeric.Result{X: x, F: res, Iterations: k + 1, Converged: true}, nil
			}
			return &numeric.Result{X: x, F: res, Iterations: k + 1},
				fmt.Errorf("broyden: stalled with zero step: %w", numeric.ErrMaxIterations)
		}
		for i := 0; i < n; i++ {
			coeff := (y[i] - bs.AtVec(i)) / ss
			for j := 0; j < n; j++ {
				b.Set(i, j, b.At(i, j)+coeff*s[j])
			}
		}

		copy(fx, fNext)
	}

	res := floats.Norm(fx, 2)
	return &numeric.Result{X: x, F: res, Iterations: p.MaxIter},
		fmt.Errorf("broyden: %w", numeric.ErrMaxIterations)
}
