// Package trustregion implements a dogleg trust-region minimizer with a
// Cauchy-point fallback for indefinite model Hessians.
package trustregion

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params configures a trust-region run.
type Params struct {
	// Tol is the gradient-norm stopping tolerance. Defaults to 1e-8.
	Tol float64

	// MaxIter bounds the number of iterations. Defaults to 500.
	MaxIter int

	// InitRadius is the starting trust radius. Defaults to 1.
	InitRadius float64

	// MaxRadius caps the trust radius. Defaults to 100.
	MaxRadius float64

	// Eta is the acceptance threshold for the reduction ratio, in
	// [0, 0.25). Defaults to 0.125.
	Eta float64

	// Recorder, when non-nil, receives every iterate. Step carries the
	// current trust radius.
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
		p.MaxIter = 500
	}
	if p.InitRadius <= 0 {
		p.InitRadius = 1
	}
	if p.MaxRadius <= 0 {
		p.MaxRadius = 100
	}
	if p.InitRadius > p.MaxRadius {
		p.InitRadius = p.MaxRadius
	}
	if p.Eta <= 0 || p.Eta >= 0.25 {
		p.Eta = 0.125
	}
	return p
}

// Minimize runs the trust-region loop of Nocedal & Wright Algorithm 4.1
// from x0: build the quadratic model at x, solve the subproblem with the
// dogleg path, evaluate the reduction ratio ρ, and update radius and
// iterate accordingly.
func Minimize(obj *numeric.Objective, x0 []float64, p Params) (*numeric.Result, error) {
	p = p.withDefaults()
	n := len(x0)

	x := make([]float64, n)
	copy(x, x0)
	g := make([]float64, n)
	step := make([]float64, n)
	trial := make([]float64, n)
	hess := mat.NewSymDense(n, nil)

	f := obj.Func(x)
	obj.Gradient(g, x)
	radius := p.InitRadius

	for k := 0; k < p.MaxIter; k++ {
		gnorm := floats.Norm(g, 2)
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
					fmt.Errorf("trustregion: interrupted at iteration %d: %w", k, err)
			}
		}
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: x, F: f, GradNorm: gnorm, Step: radius})
		}
		if gnorm <= p.Tol {
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k, Converged: true}, nil
		}

		obj.Hessian(hess, x)
		doglegStep(step, g, hess, radius)

		// Predicted reduction from the quadratic model,
		// m(0) - m(p) = -gᵀp - ½pᵀHp.
		predicted := -floats.Dot(g, step) - 0.5*quadForm(hess, step)
		floats.AddScaledTo(trial, x, 1, step)
		fTrial := obj.Func(trial)
		actual := f - fTrial

		var rho float64
		if predicted > 0 {
			rho = actual / predicted
		}

		stepNorm := floats.Norm(step, 2)
		if rho < 0.25 {
			radius *= 0.25
		} else if rho > 0.75 && stepNorm >= radius*(1-1e-10) {
			radius = math.Min(2*radius, p.MaxRadius)
		}

		if rho > p.Eta {
			copy(x, trial)
			f = fTrial
			obj.Gradient(g, x)
		}

		if radius < 1e-14 {
			gnorm = floats.Norm(g, 2)
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k + 1, Converged: gnorm <= p.Tol},
				fmt.Errorf("trustregion: radius collapsed: %w", numeric.ErrMaxIterations)
		}
	}

	gnorm := floats.Norm(g, 2)
	return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: p.MaxIter},
		fmt.Errorf("trustregion: %w", numeric.ErrMaxIterations)
}

// doglegStep writes the dogleg solution of the subproblem
//
//	min gᵀp + ½pᵀHp  s.t. ‖p‖ ≤ Δ
//
// into step. When H is not positive definite the Cauchy point is used.
func doglegStep(step, g []float64, hess *mat.SymDense, radius float64) {
	n := len(g)

	var chol mat.Cholesky
	if chol.Factorize(hess) {
		// Full Newton step pB = -H⁻¹g.
		rhs := mat.NewVecDense(n, nil)
		for i, gi := range g {
			rhs.SetVec(i, -gi)
		}
		pb := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(pb, rhs); err == nil {
			if mat.Norm(pb, 2) <= radius {
				copy(step, pb.RawVector().Data)
				return
			}

			// Steepest-descent minimizer pU = -(gᵀg/gᵀHg)·g.
			gHg := quadForm(hess, g)
			gg := floats.Dot(g, g)
			if gHg > 0 {
				pu := make([]float64, n)
				floats.ScaleTo(pu, -gg/gHg, g)
				puNorm := floats.Norm(pu, 2)
				if puNorm >= radius {
					floats.ScaleTo(step, radius/puNorm, pu)
					return
				}

				// Walk the second dogleg segment to the boundary:
				// ‖pU + τ·(pB - pU)‖ = Δ with τ ∈ (0,1).
				diff := make([]float64, n)
				for i := 0; i < n; i++ {
					diff[i] = pb.AtVec(i) - pu[i]
				}
				a := floats.Dot(diff, diff)
				b := 2 * floats.Dot(pu, diff)
				c := floats.Dot(pu, pu) - radius*radius
				tau := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
				for i := 0; i < n; i++ {
					step[i] = pu[i] + tau*diff[i]
				}
				return
			}
		}
	}

	cauchyPoint(step, g, hess, radius)
}

// cauchyPoint writes the model minimizer along -g within the radius.
func cauchyPoint(step, g []float64, hess *mat.SymDense, radius float64) {
	gnorm := floats.Norm(g, 2)
	if gnorm == 0 {
		for i := range step {
			step[i] = 0
		}
		return
	}
	tau := 1.0
	gHg := quadForm(hess, g)
	if gHg > 0 {
		tau = math.Min(1, gnorm*gnorm*gnorm/(radius*gHg))
	}
	floats.ScaleTo(step, -tau*radius/gnorm, g)
}

// quadForm evaluates vᵀHv.
func quadForm(hess *mat.SymDense, v []float64) float64 {
	n := len(v)
	s := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s += v[i] * hess.At(i, j) * v[j]
		}
	}
	return s
}
