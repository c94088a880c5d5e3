// Package linesearch implements step-length selection along a descent
// direction: Armijo backtracking and a strong Wolfe bracket-and-zoom
// search.
package linesearch

import (
	"fmt"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/floats"
)

// Searcher selects a step length along a descent direction d from x.
// f0 and g0 are the objective value and gradient at x. Implementations
// return the accepted step and the objective value at x + α·d.
type Searcher interface {
	Search(obj *numeric.Objective, x, d, g0 []float64, f0 float64) (alpha, f float64, err error)
}

// Backtracking implements the Armijo sufficient-decrease rule
//
//	f(x + α·d) ≤ f(x) + c₁·α·∇f(x)ᵀd
//
// by repeatedly contracting a trial step.
type Backtracking struct {
	// InitStep is the first trial step. Defaults to 1.
	InitStep float64

	// Contraction is the factor applied after each rejected trial,
	// in (0,1). Defaults to 0.5.
	Contraction float64

	// DecreaseFactor is the Armijo constant c₁ in (0,1). Defaults to 1e-4.
	DecreaseFactor float64

	// MaxTrials bounds the number of contractions. Defaults to 50.
	MaxTrials int
}

func (b Backtracking) withDefaults() Backtracking {
	if b.InitStep <= 0 {
		b.InitStep = 1
	}
	if b.Contraction <= 0 || b.Contraction >= 1 {
		b.Contraction = 0.5
	}
	if b.DecreaseFactor <= 0 || b.DecreaseFactor >= 1 {
		b.DecreaseFactor = 1e-4
	}
	if b.MaxTrials <= 0 {
		b.MaxTrials = 50
	}
	return b
}

// Search implements Searcher.
func (b Backtracking) Search(obj *numeric.Objective, x, d, g0 []float64, f0 float64) (float64, float64, error) {
	b = b.withDefaults()

	gd := floats.Dot(g0, d)
	if gd >= 0 {
		return 0, f0, fmt.Errorf("linesearch: gᵀd = %g: %w", gd, numeric.ErrNotDescentDirection)
	}

	trial := make([]float64, len(x))
	alpha := b.InitStep
	for i := 0; i < b.MaxTrials; i++ {
		floats.AddScaledTo(trial, x, alpha, d)
		f := obj.Func(trial)
		if f <= f0+b.DecreaseFactor*alpha*gd {
			return alpha, f, nil
		}
		alpha *= b.Contraction
	}
	return 0, f0, fmt.Errorf("linesearch: no Armijo step after %d trials: %w",
		b.MaxTrials, numeric.ErrLineSearchFailed)
}

// StrongWolfe implements the bracket-and-zoom line search of Nocedal &
// Wright (Algorithms 3.5 and 3.6). The accepted step satisfies both the
// sufficient-decrease condition and the strong curvature condition
//
//	|∇f(x + α·d)ᵀd| ≤ c₂·|∇f(x)ᵀd|
//
// with 0 < c₁ < c₂ < 1.
type StrongWolfe struct {
	// InitStep is the first trial step. Defaults to 1.
	InitStep float64

	// MaxStep bounds the bracketing phase. Defaults to 100.
	MaxStep float64

	// DecreaseFactor is c₁. Defaults to 1e-4.
	DecreaseFactor float64

	// CurvatureFactor is c₂. Defaults to 0.9.
	CurvatureFactor float64

	// MaxTrials bounds the total number of evaluations. Defaults to 60.
	MaxTrials int
}

func (w StrongWolfe) withDefaults() StrongWolfe {
	if w.InitStep <= 0 {
		w.InitStep = 1
	}
	if w.MaxStep <= 0 {
		w.MaxStep = 100
	}
	if w.DecreaseFactor <= 0 || w.DecreaseFactor >= 1 {
		w.DecreaseFactor = 1e-4
	}
	if w.CurvatureFactor <= w.DecreaseFactor || w.CurvatureFactor >= 1 {
		w.CurvatureFactor = 0.9
	}
	if w.MaxTrials <= 0 {
		w.MaxTrials = 60
	}
	return w
}

// Search implements Searcher.
func (w StrongWolfe) Search(obj *numeric.Objective, x, d, g0 []float64, f0 float64) (float64, float64, error) {
	w = w.withDefaults()

	gd0 := floats.Dot(g0, d)
	if gd0 >= 0 {
		return 0, f0, fmt.Errorf("linesearch: gᵀd = %g: %w", gd0, numeric.ErrNotDescentDirection)
	}

	trial := make([]float64, len(x))
	grad := make([]float64, len(x))

	// phi evaluates φ(α) = f(x + α·d) and φ′(α) = ∇f(x + α·d)ᵀd.
	evals := 0
	phi := func(alpha float64) (f, deriv float64) {
		evals++
		floats.AddScaledTo(trial, x, alpha, d)
		f = obj.Func(trial)
		obj.Gradient(grad, trial)
		return f, floats.Dot(grad, d)
	}

	// Bracketing phase.
	alphaPrev, fPrev := 0.0, f0
	alpha := w.InitStep
	for evals < w.MaxTrials {
		f, deriv := phi(alpha)
		if f > f0+w.DecreaseFactor*alpha*gd0 || (alpha > w.InitStep && f >= fPrev) {
			return w.zoom(phi, f0, gd0, alphaPrev, alpha, fPrev, w.MaxTrials-evals)
		}
		if math.Abs(deriv) <= w.CurvatureFactor*math.Abs(gd0) {
			return alpha, f, nil
		}
		if deriv >= 0 {
			return w.zoom(phi, f0, gd0, alpha, alphaPrev, f, w.MaxTrials-evals)
		}
		alphaPrev, fPrev = alpha, f
		alpha = math.Min(2*alpha, w.MaxStep)
		if alpha == alphaPrev {
			break
		}
	}
	return 0, f0, fmt.Errorf("linesearch: Wolfe bracketing exhausted %d trials: %w",
		w.MaxTrials, numeric.ErrLineSearchFailed)
}

// zoom narrows the bracket [lo, hi] by bisection until a step satisfying
// both Wolfe conditions is found.
func (w StrongWolfe) zoom(
	phi func(float64) (float64, float64),
	f0, gd0, lo, hi, fLo float64,
	budget int,
) (float64, float64, error) {
	for i := 0; i < budget; i++ {
		alpha := 0.5 * (lo + hi)
		f, deriv := phi(alpha)
		if f > f0+w.DecreaseFactor*alpha*gd0 || f >= fLo {
			hi = alpha
			continue
		}
		if math.Abs(deriv) <= w.CurvatureFactor*math.Abs(gd0) {
			return alpha, f, nil
		}
		if deriv*(hi-lo) >= 0 {
			hi = lo
		}
		lo, fLo = alpha, f
	}
	return 0, f0, fmt.Errorf("linesearch: Wolfe zoom exhausted its budget: %w",
		numeric.ErrLineSearchFailed)
}
