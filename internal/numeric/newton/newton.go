// Package newton implements Newton's method for unconstrained
// minimization and Broyden's quasi-Newton method for nonlinear systems.
package newton

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/linesearch"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params configures a Newton minimization.
type Params struct {
	// Tol is the gradient-norm stopping tolerance. Defaults to 1e-8.
	Tol float64

	// MaxIter bounds the number of iterations. Defaults to 100.
	MaxIter int

	// Damped enables an Armijo backtracking search along the Newton
	// direction. When false the full step is always taken, as in the
	// classroom presentation of the pure method.
	Damped bool

	// Recorder, when non-nil, receives every iterate.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled once per iteration; a non-nil
	// error aborts the run with that error and the current iterate.
	Interrupt func() error
}

func (p Params) withDefaults() Params {
	if p.Tol <= 0 {
		p.Tol = 1e-8
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 100
	}
	return p
}

// Minimize runs Newton's method from x0. Each step solves H·d = -g by
// Cholesky factorization; when H is not positive definite the solve is
// retried with an increasing diagonal shift H + τI (the Levenberg-style
// modification of Nocedal & Wright Algorithm 3.3), so the method never
// panics on an indefinite Hessian.
func Minimize(obj *numeric.Objective, x0 []float64, p Params) (*numeric.Result, error) {
	p = p.withDefaults()
	n := len(x0)

	x := make([]float64, n)
	copy(x, x0)
	g := make([]float64, n)
	d := make([]float64, n)
	hess := mat.NewSymDense(n, nil)

	search := linesearch.Backtracking{}

	f := obj.Func(x)
	obj.Gradient(g, x)

	for k := 0; k < p.MaxIter; k++ {
		gnorm := floats.Norm(g, 2)
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
					fmt.Errorf("newton: interrupted at iteration %d: %w", k, err)
			}
		}
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: x, F: f, GradNorm: gnorm})
		}
		if gnorm <= p.Tol {
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k, Converged: true}, nil
		}

		obj.Hessian(hess, x)
		if err := solveRegularized(d, hess, g); err != nil {
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
				fmt.Errorf("newton: iteration %d: %w", k, err)
		}

		if p.Damped {
			alpha, fNext, err := search.Search(obj, x, d, g, f)
			if err != nil {
				return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
					fmt.Errorf("newton: iteration %d: %w", k, err)
			}
			floats.AddScaled(x, alpha, d)
			f = fNext
		} else {
			floats.Add(x, d)
			f = obj.Func(x)
		}
		obj.Gradient(g, x)
	}

	gnorm := floats.Norm(g, 2)
	return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: p.MaxIter},
		fmt.Errorf("newton: %w", numeric.ErrMaxIterations)
}

// solveRegularized writes the solution of (H + τI)·d = -g into d, with
// τ = 0 when H is positive definite and the smallest shift from an
// escalating sequence otherwise.
func solveRegularized(d []float64, hess *mat.SymDense, g []float64) error {
	n := len(g)
	rhs := mat.NewVecDense(n, nil)
	for i, gi := range g {
		rhs.SetVec(i, -gi)
	}

	var chol mat.Cholesky
	if chol.Factorize(hess) {
		sol := mat.NewVecDense(n, d)
		if err := chol.SolveVecTo(sol, rhs); err == nil {
			return nil
		}
	}

	// Escalate τ from a scale set by the Hessian diagonal.
	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(hess.At(i, i)))
	}
	if scale == 0 {
		scale = 1
	}
	shifted := mat.NewSymDense(n, nil)
	for tau := 1e-3 * scale; tau <= 1e8*scale; tau *= 10 {
		shifted.CopySym(hess)
		for i := 0; i < n; i++ {
			shifted.SetSym(i, i, hess.At(i, i)+tau)
		}
		if chol.Factorize(shifted) {
			sol := mat.NewVecDense(n, d)
			if err := chol.SolveVecTo(sol, rhs); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("hessian could not be regularized: %w", numeric.ErrSingular)
}
