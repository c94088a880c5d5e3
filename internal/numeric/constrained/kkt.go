package constrained

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KKTReport records how well a candidate point and multiplier pair
// satisfies the Karush-Kuhn-Tucker conditions.
type KKTReport struct {
	// Stationarity is ‖∇f(x) + Σλᵢ∇cᵢ(x) + Σμⱼ∇gⱼ(x)‖₂.
	Stationarity float64 `json:"stationarity"`

	// PrimalFeasibility is max(maxᵢ|cᵢ(x)|, maxⱼ gⱼ(x)₊).
	PrimalFeasibility float64 `json:"primal_feasibility"`

	// DualFeasibility is maxⱼ (-μⱼ)₊, the worst negative multiplier.
	DualFeasibility float64 `json:"dual_feasibility"`

	// Complementarity is maxⱼ |μⱼ·gⱼ(x)|.
	Complementarity float64 `json:"complementarity"`

	// Satisfied reports whether all four residuals are within tolerance.
	Satisfied bool `json:"satisfied"`

	// ActiveSet lists the indices of inequality constraints active at x.
	ActiveSet []int `json:"active_set"`

	// LICQ reports whether the gradients of the active constraints are
	// linearly independent at x.
	LICQ bool `json:"licq"`
}

// CheckKKT evaluates the KKT residuals of (x, λ, μ) for the problem. The
// lengths of lambda and mu must match the number of equality and
// inequality constraints. tol bounds each residual and also decides
// constraint activity.
func CheckKKT(p *Problem, x, lambda, mu []float64, tol float64) (*KKTReport, error) {
	nEq, nIneq := p.Dim()
	if len(lambda) != nEq || len(mu) != nIneq {
		return nil, fmt.Errorf("constrained: %d equality and %d inequality multipliers required: %w",
			nEq, nIneq, numeric.ErrDimensionMismatch)
	}
	if tol <= 0 {
		return nil, fmt.Errorf("constrained: tolerance must be positive: %w", numeric.ErrInvalidParameter)
	}

	n := len(x)
	report := &KKTReport{}

	// Stationarity: ∇L = ∇f + Σλᵢ∇cᵢ + Σμⱼ∇gⱼ.
	lagGrad := make([]float64, n)
	scratch := make([]float64, n)
	p.Objective.Gradient(lagGrad, x)
	for i := range p.Equalities {
		p.Equalities[i].Gradient(scratch, x)
		floats.AddScaled(lagGrad, lambda[i], scratch)
	}
	for j := range p.Inequalities {
		p.Inequalities[j].Gradient(scratch, x)
		floats.AddScaled(lagGrad, mu[j], scratch)
	}
	report.Stationarity = floats.Norm(lagGrad, 2)

	// Primal feasibility and activity.
	for i := range p.Equalities {
		report.PrimalFeasibility = math.Max(report.PrimalFeasibility,
			math.Abs(p.Equalities[i].Func(x)))
	}
	for j := range p.Inequalities {
		gj := p.Inequalities[j].Func(x)
		report.PrimalFeasibility = math.Max(report.PrimalFeasibility, math.Max(gj, 0))
		if math.Abs(gj) <= tol {
			report.ActiveSet = append(report.ActiveSet, j)
		}
		report.DualFeasibility = math.Max(report.DualFeasibility, math.Max(-mu[j], 0))
		report.Complementarity = math.Max(report.Complementarity, math.Abs(mu[j]*gj))
	}

	report.Satisfied = report.Stationarity <= tol &&
		report.PrimalFeasibility <= tol &&
		report.DualFeasibility <= tol &&
		report.Complementarity <= tol

	licq, err := VerifyLICQ(p, x, tol)
	if err != nil {
		return nil, err
	}
	report.LICQ = licq

	return report, nil
}

// VerifyLICQ checks the Linear Independence Constraint Qualification at
// x: the gradients of all equality constraints and of the inequality
// constraints active at x (|g(x)| ≤ tol) must be linearly independent.
// An empty active set satisfies LICQ trivially.
func VerifyLICQ(p *Problem, x []float64, tol float64) (bool, error) {
	if tol <= 0 {
		return false, fmt.Errorf("constrained: tolerance must be positive: %w", numeric.ErrInvalidParameter)
	}
	n := len(x)

	grads := make([][]float64, 0, len(p.Equalities)+len(p.Inequalities))
	scratch := make([]float64, n)
	for i := range p.Equalities {
		p.Equalities[i].Gradient(scratch, x)
		grads = append(grads, append([]float64(nil), scratch...))
	}
	for j := range p.Inequalities {
		if math.Abs(p.Inequalities[j].Func(x)) <= tol {
			p.Inequalities[j].Gradient(scratch, x)
			grads = append(grads, append([]float64(nil), scratch...))
		}
	}

	m := len(grads)
	if m == 0 {
		return true, nil
	}
	if m > n {
		// More active gradients than dimensions cannot be independent.
		return false, nil
	}

	a := mat.NewDense(m, n, nil)
	for i, gi := range grads {
		a.SetRow(i, gi)
	}

	// Rank via singular values.
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return false, fmt.Errorf("constrained: SVD of active gradients failed: %w", numeric.ErrSingular)
	}
	sv := svd.Values(nil)
	rankTol := float64(max(m, n)) * sv[0] * 1e-14
	if sv[0] == 0 {
		return false, nil
	}
	rank := 0
	for _, s := range sv {
		if s > rankTol {
			rank++
		}
	}
	return rank == m, nil
}
