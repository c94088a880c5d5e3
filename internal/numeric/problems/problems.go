// Package problems is a catalog of named benchmark problems used by the
// run service: unconstrained objectives with analytic derivatives and a
// pair of small constrained problems. Handlers look problems up by name
// so that run requests can refer to them without shipping code.
package problems

import (
	"fmt"
	"sort"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/constrained"
	"gonum.org/v1/gonum/mat"
)

// Unconstrained bundles a named objective with a reasonable default
// starting point.
type Unconstrained struct {
	Name      string
	Dim       int
	Objective *numeric.Objective
	Start     []float64
}

// Constrained bundles a named constrained problem with a starting point
// that is strictly feasible for its inequalities.
type Constrained struct {
	Name    string
	Dim     int
	Problem *constrained.Problem
	Start   []float64
}

// Quadratic is a well-conditioned convex bowl, minimum at (3, -1).
func Quadratic() *Unconstrained {
	return &Unconstrained{
		Name: "quadratic",
		Dim:  2,
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 {
				a, b := x[0]-3, x[1]+1
				return a*a + 2*b*b
			},
			Grad: func(dst, x []float64) {
				dst[0] = 2 * (x[0] - 3)
				dst[1] = 4 * (x[1] + 1)
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 2)
				dst.SetSym(0, 1, 0)
				dst.SetSym(1, 1, 4)
			},
		},
		Start: []float64{0, 0},
	}
}

// Rosenbrock is the classic banana valley, minimum at (1, 1).
func Rosenbrock() *Unconstrained {
	return &Unconstrained{
		Name: "rosenbrock",
		Dim:  2,
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 {
				a := 1 - x[0]
				b := x[1] - x[0]*x[0]
				return a*a + 100*b*b
			},
			Grad: func(dst, x []float64) {
				dst[0] = -2*(1-x[0]) - 400*x[0]*(x[1]-x[0]*x[0])
				dst[1] = 200 * (x[1] - x[0]*x[0])
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 2-400*x[1]+1200*x[0]*x[0])
				dst.SetSym(0, 1, -400*x[0])
				dst.SetSym(1, 1, 200)
			},
		},
		Start: []float64{-1.2, 1},
	}
}

// Himmelblau has four global minima, all with value zero; the one
// nearest the default start is (3, 2).
func Himmelblau() *Unconstrained {
	return &Unconstrained{
		Name: "himmelblau",
		Dim:  2,
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 {
				a := x[0]*x[0] + x[1] - 11
				b := x[0] + x[1]*x[1] - 7
				return a*a + b*b
			},
			Grad: func(dst, x []float64) {
				a := x[0]*x[0] + x[1] - 11
				b := x[0] + x[1]*x[1] - 7
				dst[0] = 4*a*x[0] + 2*b
				dst[1] = 2*a + 4*b*x[1]
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				a := x[0]*x[0] + x[1] - 11
				b := x[0] + x[1]*x[1] - 7
				dst.SetSym(0, 0, 8*x[0]*x[0]+4*a+2)
				dst.SetSym(0, 1, 4*x[0]+4*x[1])
				dst.SetSym(1, 1, 4*b+8*x[1]*x[1]+2)
			},
		},
		Start: []float64{1, 1},
	}
}

// Quartic1D is a one-dimensional double well with minima near ±1/√2
// and a local maximum at the origin; useful for exercising line
// searches and regularized Newton.
func Quartic1D() *Unconstrained {
	return &Unconstrained{
		Name: "quartic1d",
		Dim:  1,
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 {
				return x[0]*x[0]*x[0]*x[0] - x[0]*x[0]
			},
			Grad: func(dst, x []float64) {
				dst[0] = 4*x[0]*x[0]*x[0] - 2*x[0]
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 12*x[0]*x[0]-2)
			},
		},
		Start: []float64{1.5},
	}
}

// UnitLine is min ‖x‖² on the line x₀ + x₁ = 1; solution (½, ½) with
// equality multiplier -1.
func UnitLine() *Constrained {
	return &Constrained{
		Name: "unit_line",
		Dim:  2,
		Problem: &constrained.Problem{
			Objective: &numeric.Objective{
				Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
				Grad: func(dst, x []float64) {
					dst[0] = 2 * x[0]
					dst[1] = 2 * x[1]
				},
				Hess: func(dst *mat.SymDense, x []float64) {
					dst.SetSym(0, 0, 2)
					dst.SetSym(0, 1, 0)
					dst.SetSym(1, 1, 2)
				},
			},
			Equalities: []constrained.Constraint{{
				Name: "line",
				Func: func(x []float64) float64 { return x[0] + x[1] - 1 },
				Grad: func(dst, x []float64) {
					dst[0] = 1
					dst[1] = 1
				},
				Hess: func(dst *mat.SymDense, x []float64) { dst.Zero() },
			}},
		},
		Start: []float64{0, 0},
	}
}

// UnitDisk is min (x₀-2)² + x₁² inside the unit disk; solution (1, 0)
// with inequality multiplier 1.
func UnitDisk() *Constrained {
	return &Constrained{
		Name: "unit_disk",
		Dim:  2,
		Problem: &constrained.Problem{
			Objective: &numeric.Objective{
				Func: func(x []float64) float64 {
					a := x[0] - 2
					return a*a + x[1]*x[1]
				},
				Grad: func(dst, x []float64) {
					dst[0] = 2 * (x[0] - 2)
					dst[1] = 2 * x[1]
				},
				Hess: func(dst *mat.SymDense, x []float64) {
					dst.SetSym(0, 0, 2)
					dst.SetSym(0, 1, 0)
					dst.SetSym(1, 1, 2)
				},
			},
			Inequalities: []constrained.Constraint{{
				Name: "disk",
				Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] - 1 },
				Grad: func(dst, x []float64) {
					dst[0] = 2 * x[0]
					dst[1] = 2 * x[1]
				},
				Hess: func(dst *mat.SymDense, x []float64) {
					dst.SetSym(0, 0, 2)
					dst.SetSym(0, 1, 0)
					dst.SetSym(1, 1, 2)
				},
			}},
		},
		Start: []float64{0, 0},
	}
}

var unconstrainedCatalog = map[string]func() *Unconstrained{
	"quadratic":  Quadratic,
	"rosenbrock": Rosenbrock,
	"himmelblau": Himmelblau,
	"quartic1d":  Quartic1D,
}

var constrainedCatalog = map[string]func() *Constrained{
	"unit_line": UnitLine,
	"unit_disk": UnitDisk,
}

// LookupUnconstrained returns the named unconstrained problem.
func LookupUnconstrained(name string) (*Unconstrained, error) {
	fn, ok := unconstrainedCatalog[name]
	if !ok {
		return nil, fmt.Errorf("problems: unknown objective %q: %w", name, numeric.ErrInvalidParameter)
	}
	return fn(), nil
}

// LookupConstrained returns the named constrained problem.
func LookupConstrained(name string) (*Constrained, error) {
	fn, ok := constrainedCatalog[name]
	if !ok {
		return nil, fmt.Errorf("problems: unknown constrained problem %q: %w", name, numeric.ErrInvalidParameter)
	}
	return fn(), nil
}

// Names lists the catalog, unconstrained then constrained, each group
// sorted alphabetically.
func Names() []string {
	var un, con []string
	for name := range unconstrainedCatalog {
		un = append(un, name)
	}
	for name := range constrainedCatalog {
		con = append(con, name)
	}
	sort.Strings(un)
	sort.Strings(con)
	return append(un, con...)
}
