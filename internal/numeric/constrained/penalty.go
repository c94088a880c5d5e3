package constrained

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/newton"
	"gonum.org/v1/gonum/mat"
)

// PenaltyParams configures the quadratic penalty method.
type PenaltyParams struct {
	// InitMu is the starting penalty weight. Defaults to 1.
	InitMu float64

	// MuFactor multiplies the weight between outer iterations. Defaults
	// to 10.
	MuFactor float64

	// MaxOuter bounds the number of outer iterations. Defaults to 15.
	MaxOuter int

	// Tol is the constraint-violation stopping tolerance. Defaults to
	// 1e-6.
	Tol float64

	// InnerTol and InnerMaxIter configure each Newton subproblem.
	// Default to 1e-8 and 200.
	InnerTol     float64
	InnerMaxIter int

	// Recorder, when non-nil, receives one iterate per outer iteration.
	// GradNorm carries the constraint violation and Step the penalty
	// weight.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled by the inner solver and after
	// every outer iteration; a non-nil error aborts the run.
	Interrupt func() error
}

func (p PenaltyParams) withDefaults() PenaltyParams {
	if p.InitMu <= 0 {
		p.InitMu = 1
	}
	if p.MuFactor <= 1 {
		p.MuFactor = 10
	}
	if p.MaxOuter <= 0 {
		p.MaxOuter = 15
	}
	if p.Tol <= 0 {
		p.Tol = 1e-6
	}
	if p.InnerTol <= 0 {
		p.InnerTol = 1e-8
	}
	if p.InnerMaxIter <= 0 {
		p.InnerMaxIter = 200
	}
	return p
}

// violation returns max(maxᵢ|cᵢ(x)|, maxⱼ gⱼ(x)₊).
func violation(p *Problem, x []float64) float64 {
	v := 0.0
	for i := range p.Equalities {
		v = math.Max(v, math.Abs(p.Equalities[i].Func(x)))
	}
	for j := range p.Inequalities {
		v = math.Max(v, math.Max(p.Inequalities[j].Func(x), 0))
	}
	return v
}

// addScaledOuter adds coeff·v·vᵀ to dst.
func addScaledOuter(dst *mat.SymDense, coeff float64, v []float64) {
	n := len(v)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, dst.At(i, j)+coeff*v[i]*v[j])
		}
	}
}

// addScaledSym adds coeff·src to dst.
func addScaledSym(dst *mat.SymDense, coeff float64, src *mat.SymDense) {
	n := dst.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, dst.At(i, j)+coeff*src.At(i, j))
		}
	}
}

// penaltyObjective builds Q(x; μ) = f + (μ/2)·(Σcᵢ² + Σ(gⱼ)₊²) with
// analytic first and second derivatives assembled from the constraint
// derivatives, so the inner Newton solver stays robust as μ grows.
func penaltyObjective(p *Problem, mu float64) *numeric.Objective {
	return &numeric.Objective{
		Func: func(x []float64) float64 {
			q := p.Objective.Func(x)
			for i := range p.Equalities {
				c := p.Equalities[i].Func(x)
				q += 0.5 * mu * c * c
			}
			for j := range p.Inequalities {
				if g := p.Inequalities[j].Func(x); g > 0 {
					q += 0.5 * mu * g * g
				}
			}
			return q
		},
		Grad: func(dst, x []float64) {
			n := len(x)
			scratch := make([]float64, n)
			p.Objective.Gradient(dst, x)
			for i := range p.Equalities {
				c := p.Equalities[i].Func(x)
				p.Equalities[i].Gradient(scratch, x)
				for k := range dst {
					dst[k] += mu * c * scratch[k]
				}
			}
			for j := range p.Inequalities {
				if g := p.Inequalities[j].Func(x); g > 0 {
					p.Inequalities[j].Gradient(scratch, x)
					for k := range dst {
						dst[k] += mu * g * scratch[k]
					}
				}
			}
		},
		Hess: func(dst *mat.SymDense, x []float64) {
			n := len(x)
			grad := make([]float64, n)
			ch := mat.NewSymDense(n, nil)
			p.Objective.Hessian(dst, x)
			for i := range p.Equalities {
				c := p.Equalities[i].Func(x)
				p.Equalities[i].Gradient(grad, x)
				p.Equalities[i].Hessian(ch, x)
				addScaledOuter(dst, mu, grad)
				addScaledSym(dst, mu*c, ch)
			}
			for j := range p.Inequalities {
				if g := p.Inequalities[j].Func(x); g > 0 {
					p.Inequalities[j].Gradient(grad, x)
					p.Inequalities[j].Hessian(ch, x)
					addScaledOuter(dst, mu, grad)
					addScaledSym(dst, mu*g, ch)
				}
			}
		},
	}
}

// Penalty minimizes the problem by the quadratic penalty method: each
// outer iteration minimizes Q(x; μ) with damped Newton and then
// increases μ until the constraint violation falls below tolerance.
func Penalty(p *Problem, x0 []float64, params PenaltyParams) (*numeric.Result, error) {
	params = params.withDefaults()
	n := len(x0)

	x := make([]float64, n)
	copy(x, x0)
	mu := params.InitMu

	for outer := 0; outer < params.MaxOuter; outer++ {
		inner, err := newton.Minimize(penaltyObjective(p, mu), x, newton.Params{
			Tol:       params.InnerTol,
			MaxIter:   params.InnerMaxIter,
			Damped:    true,
			Interrupt: params.Interrupt,
		})
		if inner == nil {
			return nil, fmt.Errorf("constrained: penalty subproblem (μ=%g): %w", mu, err)
		}
		// A subproblem hitting its cap is tolerable; the outer loop
		// tightens around the solution anyway.
		copy(x, inner.X)

		if params.Interrupt != nil {
			if ierr := params.Interrupt(); ierr != nil {
				return &numeric.Result{X: x, F: p.Objective.Func(x), GradNorm: violation(p, x), Iterations: outer},
					fmt.Errorf("constrained: penalty method interrupted: %w", ierr)
			}
		}

		v := violation(p, x)
		if params.Recorder != nil {
			params.Recorder(numeric.Iterate{K: outer, X: x, F: p.Objective.Func(x), GradNorm: v, Step: mu})
		}
		if v <= params.Tol {
			return &numeric.Result{
				X: x, F: p.Objective.Func(x), GradNorm: v,
				Iterations: outer + 1, Converged: true,
			}, nil
		}
		mu *= params.MuFactor
	}

	return &numeric.Result{X: x, F: p.Objective.Func(x), GradNorm: violation(p, x), Iterations: params.MaxOuter},
		fmt.Errorf("constrained: penalty method: %w", numeric.ErrMaxIterations)
}

// BarrierParams configures the logarithmic barrier method.
type BarrierParams struct {
	// InitT is the starting barrier multiplier. Defaults to 1.
	InitT float64

	// TFactor multiplies t between outer iterations. Defaults to 10.
	TFactor float64

	// MaxOuter bounds the number of outer iterations. Defaults to 15.
	MaxOuter int

	// Tol is the duality-gap stopping tolerance m/t. Defaults to 1e-6.
	Tol float64

	// InnerTol and InnerMaxIter configure each centering subproblem.
	// Default to 1e-8 and 200.
	InnerTol     float64
	InnerMaxIter int

	// Recorder, when non-nil, receives one iterate per outer iteration.
	// GradNorm carries the duality gap and Step the barrier multiplier.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled by the inner solver and after
	// every outer iteration; a non-nil error aborts the run.
	Interrupt func() error
}

func (p BarrierParams) withDefaults() BarrierParams {
	if p.InitT <= 0 {
		p.InitT = 1
	}
	if p.TFactor <= 1 {
		p.TFactor = 10
	}
	if p.MaxOuter <= 0 {
		p.MaxOuter = 15
	}
	if p.Tol <= 0 {
		p.Tol = 1e-6
	}
	if p.InnerTol <= 0 {
		p.InnerTol = 1e-8
	}
	if p.InnerMaxIter <= 0 {
		p.InnerMaxIter = 200
	}
	return p
}

// barrierObjective builds B(x; t) = t·f(x) - Σ log(-gⱼ(x)) with analytic
// derivatives
//
//	∇B  = t·∇f - Σ ∇gⱼ/gⱼ
//	∇²B = t·∇²f + Σ (∇gⱼ∇gⱼᵀ)/gⱼ² - Σ ∇²gⱼ/gⱼ.
//
// Func returns +Inf outside the strictly feasible region so that line
// searches reject infeasible trial points; derivative evaluations only
// ever happen at feasible iterates.
func barrierObjective(p *Problem, t float64) *numeric.Objective {
	return &numeric.Objective{
		Func: func(x []float64) float64 {
			b := t * p.Objective.Func(x)
			for j := range p.Inequalities {
				g := p.Inequalities[j].Func(x)
				if g >= 0 {
					return math.Inf(1)
				}
				b -= math.Log(-g)
			}
			return b
		},
		Grad: func(dst, x []float64) {
			n := len(x)
			scratch := make([]float64, n)
			p.Objective.Gradient(dst, x)
			for k := range dst {
				dst[k] *= t
			}
			for j := range p.Inequalities {
				g := p.Inequalities[j].Func(x)
				p.Inequalities[j].Gradient(scratch, x)
				for k := range dst {
					dst[k] -= scratch[k] / g
				}
			}
		},
		Hess: func(dst *mat.SymDense, x []float64) {
			n := len(x)
			grad := make([]float64, n)
			ch := mat.NewSymDense(n, nil)
			fh := mat.NewSymDense(n, nil)
			p.Objective.Hessian(fh, x)
			dst.Zero()
			addScaledSym(dst, t, fh)
			for j := range p.Inequalities {
				g := p.Inequalities[j].Func(x)
				p.Inequalities[j].Gradient(grad, x)
				p.Inequalities[j].Hessian(ch, x)
				addScaledOuter(dst, 1/(g*g), grad)
				addScaledSym(dst, -1/g, ch)
			}
		},
	}
}

// Barrier minimizes an inequality-constrained problem by the log-barrier
// method: each outer iteration centers B(x; t) with damped Newton and
// multiplies t until the duality gap m/t falls below tolerance. The
// starting point must be strictly feasible and the problem must have no
// equality constraints.
func Barrier(p *Problem, x0 []float64, params BarrierParams) (*numeric.Result, error) {
	params = params.withDefaults()
	if len(p.Equalities) > 0 {
		return nil, fmt.Errorf("constrained: barrier method does not handle equality constraints: %w",
			numeric.ErrInvalidParameter)
	}
	m := len(p.Inequalities)
	if m == 0 {
		return nil, fmt.Errorf("constrained: barrier method requires at least one inequality: %w",
			numeric.ErrInvalidParameter)
	}
	for j := range p.Inequalities {
		if p.Inequalities[j].Func(x0) >= 0 {
			return nil, fmt.Errorf("constrained: constraint %q violated at start: %w",
				p.Inequalities[j].Name, numeric.ErrInfeasibleStart)
		}
	}

	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	t := params.InitT

	for outer := 0; outer < params.MaxOuter; outer++ {
		inner, err := newton.Minimize(barrierObjective(p, t), x, newton.Params{
			Tol:       params.InnerTol,
			MaxIter:   params.InnerMaxIter,
			Damped:    true,
			Interrupt: params.Interrupt,
		})
		if inner == nil {
			return nil, fmt.Errorf("constrained: centering step (t=%g): %w", t, err)
		}
		copy(x, inner.X)

		if params.Interrupt != nil {
			if ierr := params.Interrupt(); ierr != nil {
				return &numeric.Result{X: x, F: p.Objective.Func(x), GradNorm: float64(m) / t, Iterations: outer},
					fmt.Errorf("constrained: barrier method interrupted: %w", ierr)
			}
		}

		gap := float64(m) / t
		if params.Recorder != nil {
			params.Recorder(numeric.Iterate{K: outer, X: x, F: p.Objective.Func(x), GradNorm: gap, Step: t})
		}
		if gap <= params.Tol {
			return &numeric.Result{
				X: x, F: p.Objective.Func(x), GradNorm: gap,
				Iterations: outer + 1, Converged: true,
			}, nil
		}
		t *= params.TFactor
	}

	return &numeric.Result{X: x, F: p.Objective.Func(x), GradNorm: float64(m) / t, Iterations: params.MaxOuter},
		fmt.Errorf("constrained: barrier method: %w", numeric.ErrMaxIterations)
}
