package numeric

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Objective is a scalar function of several variables together with its
// derivatives. Func is required; Grad and Hess are optional and fall back
// to finite-difference approximations when nil.
//
// Grad and Hess follow the gonum convention of writing into a destination
// provided by the caller.
type Objective struct {
	// Func evaluates the objective at x.
	Func func(x []float64) float64

	// Grad writes the gradient at x into dst. May be nil.
	Grad func(dst, x []float64)

	// Hess writes the Hessian at x into dst. May be nil.
	Hess func(dst *mat.SymDense, x []float64)
}

// Gradient evaluates the gradient at x, writing it into dst. When no
// analytic gradient is available a central finite difference is used.
// dst must have the same length as x.
func (o *Objective) Gradient(dst, x []float64) {
	if len(dst) != len(x) {
		panic("numeric: gradient destination length mismatch")
	}
	if o.Grad != nil {
		o.Grad(dst, x)
		return
	}
	FDGradient(dst, o.Func, x)
}

// Hessian evaluates the Hessian at x, writing it into dst. When no
// analytic Hessian is available a finite-difference approximation is
// used. dst must be n×n for n = len(x).
func (o *Objective) Hessian(dst *mat.SymDense, x []float64) {
	if dst.SymmetricDim() != len(x) {
		panic("numeric: hessian destination dimension mismatch")
	}
	if o.Hess != nil {
		o.Hess(dst, x)
		return
	}
	FDHessian(dst, o.Func, x)
}

// Result reports the outcome of an iterative solver.
type Result struct {
	// X is the final iterate.
	X []float64

	// F is the objective value at X. For root-finding methods it holds
	// the residual norm instead.
	F float64

	// GradNorm is the Euclidean norm of the gradient at X, when the
	// method tracks one.
	GradNorm float64

	// Iterations is the number of iterations performed.
	Iterations int

	// Converged reports whether the stopping tolerance was met.
	Converged bool
}

// GradNormAt is a convenience for computing ‖∇f(x)‖₂ with a scratch
// gradient evaluation.
func (o *Objective) GradNormAt(x []float64) float64 {
	g := make([]float64, len(x))
	o.Gradient(g, x)
	return floats.Norm(g, 2)
}
