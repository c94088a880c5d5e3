// Package constrained provides first-order optimality analysis (KKT
// residuals, active sets, LICQ verification) and two classical
// constrained-minimization schemes: the quadratic penalty method and the
// logarithmic barrier method.
package constrained

import (
	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// Constraint is a scalar constraint function with optional analytic
// derivatives. Equality constraints are interpreted as c(x) = 0 and
// inequality constraints as g(x) ≤ 0.
type Constraint struct {
	Name string

	// Func evaluates the constraint at x.
	Func func(x []float64) float64

	// Grad writes the constraint gradient at x into dst. May be nil, in
	// which case a central finite difference is used.
	Grad func(dst, x []float64)

	// Hess writes the constraint Hessian at x into dst. May be nil, in
	// which case a finite-difference approximation is used.
	Hess func(dst *mat.SymDense, x []float64)
}

// Gradient evaluates the constraint gradient at x into dst.
func (c *Constraint) Gradient(dst, x []float64) {
	if c.Grad != nil {
		c.Grad(dst, x)
		return
	}
	numeric.FDGradient(dst, c.Func, x)
}

// Hessian evaluates the constraint Hessian at x into dst.
func (c *Constraint) Hessian(dst *mat.SymDense, x []float64) {
	if c.Hess != nil {
		c.Hess(dst, x)
		return
	}
	numeric.FDHessian(dst, c.Func, x)
}

// Problem is a constrained minimization problem
//
//	min f(x)  s.t.  cᵢ(x) = 0,  gⱼ(x) ≤ 0.
type Problem struct {
	Objective    *numeric.Objective
	Equalities   []Constraint
	Inequalities []Constraint
}

// Dim reports the number of equality and inequality constraints.
func (p *Problem) Dim() (eq, ineq int) {
	return len(p.Equalities), len(p.Inequalities)
}
