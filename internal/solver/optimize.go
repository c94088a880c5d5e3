package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/constrained"
	"github.com/nvalden/numlab-api/internal/numeric/descent"
	"github.com/nvalden/numlab-api/internal/numeric/linesearch"
	"github.com/nvalden/numlab-api/internal/numeric/newton"
	"github.com/nvalden/numlab-api/internal/numeric/problems"
	"github.com/nvalden/numlab-api/internal/numeric/trustregion"
)

// minimizeResult is the JSON shape shared by the minimization
// algorithms.
type minimizeResult struct {
	X          []float64 `json:"x"`
	F          float64   `json:"f"`
	GradNorm   float64   `json:"grad_norm"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
}

func toMinimizeResult(res *numeric.Result) minimizeResult {
	return minimizeResult{
		X: res.X, F: res.F, GradNorm: res.GradNorm,
		Iterations: res.Iterations, Converged: res.Converged,
	}
}

// resolveStart picks the explicit start if given, else the problem's
// default, and checks the dimension.
func resolveStart(start []float64, dflt []float64, dim int) ([]float64, error) {
	if start == nil {
		out := make([]float64, len(dflt))
		copy(out, dflt)
		return out, nil
	}
	if len(start) != dim {
		return nil, fmt.Errorf("%w: start has %d components, problem needs %d",
			ErrBadParams, len(start), dim)
	}
	return start, nil
}

// finish converts solver errors into outcomes: hitting the iteration
// cap is reported as converged=false rather than a failure, parameter
// errors propagate.
func finish(res *numeric.Result, err error, tr *numeric.Trace) (*Outcome, error) {
	if err != nil && !errors.Is(err, numeric.ErrMaxIterations) {
		return nil, err
	}
	return marshalOutcome(toMinimizeResult(res), tr.Iterates)
}

type gradientDescentParams struct {
	Problem    string    `json:"problem" validate:"required"`
	Start      []float64 `json:"start,omitempty"`
	Tol        float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter    int       `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
	LineSearch string    `json:"line_search,omitempty" validate:"omitempty,oneof=backtracking wolfe"`
}

func (r *Registry) runGradientDescent(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p gradientDescentParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupUnconstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var search linesearch.Searcher
	if p.LineSearch == "wolfe" {
		search = &linesearch.StrongWolfe{}
	}

	var tr numeric.Trace
	res, err := descent.Minimize(prob.Objective, start, descent.Params{
		Tol: p.Tol, MaxIter: p.MaxIter, Search: search, Recorder: tr.Record,
		Interrupt: ctx.Err,
	})
	return finish(res, err, &tr)
}

type newtonParams struct {
	Problem string    `json:"problem" validate:"required"`
	Start   []float64 `json:"start,omitempty"`
	Tol     float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter int       `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
	Damped  bool      `json:"damped,omitempty"`
}

func (r *Registry) runNewton(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p newtonParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupUnconstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var tr numeric.Trace
	res, err := newton.Minimize(prob.Objective, start, newton.Params{
		Tol: p.Tol, MaxIter: p.MaxIter, Damped: p.Damped, Recorder: tr.Record,
		Interrupt: ctx.Err,
	})
	return finish(res, err, &tr)
}

type broydenParams struct {
	Problem string    `json:"problem" validate:"required"`
	Start   []float64 `json:"start,omitempty"`
	Tol     float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter int       `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
}

// runBroyden finds a stationary point of the named objective by
// applying Broyden's method to the gradient system ∇f(x) = 0.
func (r *Registry) runBroyden(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p broydenParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupUnconstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var tr numeric.Trace
	res, err := newton.Broyden(prob.Objective.Gradient, start, newton.SystemParams{
		Tol: p.Tol, MaxIter: p.MaxIter, Recorder: tr.Record, Interrupt: ctx.Err,
	})
	return finish(res, err, &tr)
}

type trustRegionParams struct {
	Problem    string    `json:"problem" validate:"required"`
	Start      []float64 `json:"start,omitempty"`
	Tol        float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter    int       `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
	InitRadius float64   `json:"init_radius,omitempty" validate:"omitempty,gt=0"`
	MaxRadius  float64   `json:"max_radius,omitempty" validate:"omitempty,gt=0"`
}

func (r *Registry) runTrustRegion(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p trustRegionParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupUnconstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var tr numeric.Trace
	res, err := trustregion.Minimize(prob.Objective, start, trustregion.Params{
		Tol: p.Tol, MaxIter: p.MaxIter,
		InitRadius: p.InitRadius, MaxRadius: p.MaxRadius,
		Recorder: tr.Record, Interrupt: ctx.Err,
	})
	return finish(res, err, &tr)
}

type penaltyParams struct {
	Problem  string    `json:"problem" validate:"required"`
	Start    []float64 `json:"start,omitempty"`
	Tol      float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxOuter int       `json:"max_outer,omitempty" validate:"omitempty,gt=0,lte=100"`
}

func (r *Registry) runPenalty(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p penaltyParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupConstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var tr numeric.Trace
	res, err := constrained.Penalty(prob.Problem, start, constrained.PenaltyParams{
		Tol: p.Tol, MaxOuter: p.MaxOuter, Recorder: tr.Record, Interrupt: ctx.Err,
	})
	return finish(res, err, &tr)
}

func (r *Registry) runBarrier(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p penaltyParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupConstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	start, err := resolveStart(p.Start, prob.Start, prob.Dim)
	if err != nil {
		return nil, err
	}

	var tr numeric.Trace
	res, err := constrained.Barrier(prob.Problem, start, constrained.BarrierParams{
		Tol: p.Tol, MaxOuter: p.MaxOuter, Recorder: tr.Record, Interrupt: ctx.Err,
	})
	if err != nil && (errors.Is(err, numeric.ErrInfeasibleStart) || errors.Is(err, numeric.ErrInvalidParameter)) {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return finish(res, err, &tr)
}

type kktCheckParams struct {
	Problem string    `json:"problem" validate:"required"`
	X       []float64 `json:"x" validate:"required,min=1"`
	Lambda  []float64 `json:"lambda,omitempty"`
	Mu      []float64 `json:"mu,omitempty"`
	Tol     float64   `json:"tol,omitempty" validate:"omitempty,gt=0"`
}

func (r *Registry) runKKTCheck(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p kktCheckParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	prob, err := problems.LookupConstrained(p.Problem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	if len(p.X) != prob.Dim {
		return nil, fmt.Errorf("%w: x has %d components, problem needs %d",
			ErrBadParams, len(p.X), prob.Dim)
	}
	tol := p.Tol
	if tol == 0 {
		tol = 1e-6
	}

	report, err := constrained.CheckKKT(prob.Problem, p.X, p.Lambda, p.Mu, tol)
	if err != nil {
		if errors.Is(err, numeric.ErrDimensionMismatch) || errors.Is(err, numeric.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return nil, err
	}
	return marshalOutcome(report, nil)
}
