// Package eigen implements classroom eigenvalue solvers: power
// iteration, shifted inverse iteration, and the shifted QR algorithm on
// Hessenberg form.
package eigen

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PowerParams configures power and inverse iteration.
type PowerParams struct {
	// Tol is the residual stopping tolerance ‖Av - λv‖₂ ≤ Tol·|λ|.
	// Defaults to 1e-10.
	Tol float64

	// MaxIter bounds the number of iterations. Defaults to 1000.
	MaxIter int

	// Recorder, when non-nil, receives one iterate per iteration with
	// the current eigenvalue estimate in F.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled once per iteration; a non-nil
	// error aborts the run with that error.
	Interrupt func() error
}

func (p PowerParams) withDefaults() PowerParams {
	if p.Tol <= 0 {
		p.Tol = 1e-10
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 1000
	}
	return p
}

// Power runs power iteration on a from the starting vector v0, returning
// the dominant eigenvalue (by Rayleigh quotient) and its normalized
// eigenvector. v0 must be nonzero and of matching dimension.
func Power(a mat.Matrix, v0 []float64, p PowerParams) (float64, []float64, error) {
	p = p.withDefaults()
	r, c := a.Dims()
	if r != c {
		return 0, nil, fmt.Errorf("eigen: matrix must be square: %w", numeric.ErrDimensionMismatch)
	}
	if len(v0) != r {
		return 0, nil, fmt.Errorf("eigen: starting vector length %d for %d×%d matrix: %w",
			len(v0), r, c, numeric.ErrDimensionMismatch)
	}
	norm := floats.Norm(v0, 2)
	if norm == 0 {
		return 0, nil, fmt.Errorf("eigen: starting vector must be nonzero: %w", numeric.ErrInvalidParameter)
	}

	v := mat.NewVecDense(r, nil)
	for i, vi := range v0 {
		v.SetVec(i, vi/norm)
	}
	w := mat.NewVecDense(r, nil)
	resid := mat.NewVecDense(r, nil)

	var lambda float64
	for k := 0; k < p.MaxIter; k++ {
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return lambda, nil, fmt.Errorf("eigen: power iteration interrupted: %w", err)
			}
		}
		w.MulVec(a, v)

		// Rayleigh quotient with ‖v‖ = 1.
		lambda = mat.Dot(v, w)

		resid.AddScaledVec(w, -lambda, v)
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: v.RawVector().Data, F: lambda,
				GradNorm: mat.Norm(resid, 2)})
		}
		if mat.Norm(resid, 2) <= p.Tol*(1+math.Abs(lambda)) {
			out := make([]float64, r)
			copy(out, v.RawVector().Data)
			return lambda, out, nil
		}

		wn := mat.Norm(w, 2)
		if wn == 0 {
			return 0, nil, fmt.Errorf("eigen: iterate vanished (v0 in the null space): %w",
				numeric.ErrSingular)
		}
		v.ScaleVec(1/wn, w)
	}
	return lambda, nil, fmt.Errorf("eigen: power iteration: %w", numeric.ErrMaxIterations)
}

// InversePower runs shifted inverse iteration, converging to the
// eigenvalue of a closest to shift. The shifted matrix is factorized
// once; each iteration solves (A - σI)·w = v.
func InversePower(a mat.Matrix, shift float64, v0 []float64, p PowerParams) (float64, []float64, error) {
	p = p.withDefaults()
	r, c := a.Dims()
	if r != c {
		return 0, nil, fmt.Errorf("eigen: matrix must be square: %w", numeric.ErrDimensionMismatch)
	}
	if len(v0) != r {
		return 0, nil, fmt.Errorf("eigen: starting vector length %d for %d×%d matrix: %w",
			len(v0), r, c, numeric.ErrDimensionMismatch)
	}
	norm := floats.Norm(v0, 2)
	if norm == 0 {
		return 0, nil, fmt.Errorf("eigen: starting vector must be nonzero: %w", numeric.ErrInvalidParameter)
	}

	shifted := mat.NewDense(r, r, nil)
	shifted.Copy(a)
	for i := 0; i < r; i++ {
		shifted.Set(i, i, shifted.At(i, i)-shift)
	}
	var lu mat.LU
	lu.Factorize(shifted)

	v := mat.NewVecDense(r, nil)
	for i, vi := range v0 {
		v.SetVec(i, vi/norm)
	}
	w := mat.NewVecDense(r, nil)
	av := mat.NewVecDense(r, nil)
	resid := mat.NewVecDense(r, nil)

	var lambda float64
	for k := 0; k < p.MaxIter; k++ {
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return lambda, nil, fmt.Errorf("eigen: inverse iteration interrupted: %w", err)
			}
		}
		if err := lu.SolveVecTo(w, false, v); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				// The shift hit an eigenvalue exactly; v is already an
				// excellent eigenvector approximation in that case.
				return 0, nil, fmt.Errorf("eigen: shifted matrix is singular: %w", numeric.ErrSingular)
			}
		}
		wn := mat.Norm(w, 2)
		if wn == 0 {
			return 0, nil, fmt.Errorf("eigen: iterate vanished: %w", numeric.ErrSingular)
		}
		v.ScaleVec(1/wn, w)

		av.MulVec(a, v)
		lambda = mat.Dot(v, av)
		resid.AddScaledVec(av, -lambda, v)
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: v.RawVector().Data, F: lambda,
				GradNorm: mat.Norm(resid, 2)})
		}
		if mat.Norm(resid, 2) <= p.Tol*(1+math.Abs(lambda)) {
			out := make([]float64, r)
			copy(out, v.RawVector().Data)
			return lambda, out, nil
		}
	}
	return lambda, nil, fmt.Errorf("eigen: inverse iteration: %w", numeric.ErrMaxIterations)
}
