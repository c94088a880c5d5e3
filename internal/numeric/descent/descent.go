// Package descent implements gradient descent with a pluggable line
// search.
package descent

import (
	"fmt"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/linesearch"
	"gonum.org/v1/gonum/floats"
)

// Params configures a gradient descent run.
type Params struct {
	// Tol is the gradient-norm stopping tolerance. Defaults to 1e-6.
	Tol float64

	// MaxIter bounds the number of iterations. Defaults to 1000.
	MaxIter int

	// Search selects the step length. Defaults to Armijo backtracking.
	Search linesearch.Searcher

	// Recorder, when non-nil, receives every iterate.
	Recorder numeric.TraceRecorder

	// Interrupt, when non-nil, is polled once per iteration; a non-nil
	// error aborts the run with that error and the current iterate.
	Interrupt func() error
}

func (p Params) withDefaults() Params {
	if p.Tol <= 0 {
		p.Tol = 1e-6
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 1000
	}
	if p.Search == nil {
		p.Search = linesearch.Backtracking{}
	}
	return p
}

// Minimize runs gradient descent from x0. It stops when ‖∇f‖₂ ≤ Tol and
// returns ErrMaxIterations (with the best iterate in the Result) when the
// iteration budget is exhausted first.
func Minimize(obj *numeric.Objective, x0 []float64, p Params) (*numeric.Result, error) {
	p = p.withDefaults()
	n := len(x0)

	x := make([]float64, n)
	copy(x, x0)
	g := make([]float64, n)
	d := make([]float64, n)

	f := obj.Func(x)
	obj.Gradient(g, x)

	for k := 0; k < p.MaxIter; k++ {
		gnorm := floats.Norm(g, 2)
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
					fmt.Errorf("descent: interrupted at iteration %d: %w", k, err)
			}
		}
		if p.Recorder != nil {
			p.Recorder(numeric.Iterate{K: k, X: x, F: f, GradNorm: gnorm})
		}
		if gnorm <= p.Tol {
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k, Converged: true}, nil
		}

		floats.ScaleTo(d, -1, g)
		alpha, fNext, err := p.Search.Search(obj, x, d, g, f)
		if err != nil {
			return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: k},
				fmt.Errorf("descent: iteration %d: %w", k, err)
		}

		floats.AddScaled(x, alpha, d)
		f = fNext
		obj.Gradient(g, x)
	}

	gnorm := floats.Norm(g, 2)
	return &numeric.Result{X: x, F: f, GradNorm: gnorm, Iterations: p.MaxIter},
		fmt.Errorf("descent: %w", numeric.ErrMaxIterations)
}
