// Package solver maps algorithm names to runnable solvers. A run
// request carries an algorithm name and a JSON parameter document; the
// registry decodes and validates the parameters, executes the solver,
// and returns a JSON result plus the iteration trace.
package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/nvalden/numlab-api/internal/numeric"
)

// Errors returned by the registry. Parameter problems inside a solver
// surface as numeric.ErrInvalidParameter wrapped errors.
var (
	// ErrUnknownAlgorithm indicates the requested algorithm name is not
	// registered.
	ErrUnknownAlgorithm = fmt.Errorf("solver: unknown algorithm")

	// ErrBadParams indicates the parameter document failed to decode or
	// validate.
	ErrBadParams = fmt.Errorf("solver: invalid parameters")
)

// Outcome is what a solver run produces: an algorithm-specific result
// document and the recorded iteration trace.
type Outcome struct {
	Result json.RawMessage   `json:"result"`
	Trace  []numeric.Iterate `json:"trace,omitempty"`
}

// Runner executes one algorithm with decoded-from-JSON parameters.
type Runner func(ctx context.Context, params json.RawMessage) (*Outcome, error)

// Registry holds the available algorithms.
type Registry struct {
	validate *validator.Validate
	runners  map[string]Runner
}

// NewRegistry returns a registry with every built-in algorithm
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		validate: validator.New(),
		runners:  make(map[string]Runner),
	}
	r.register("gradient_descent", r.runGradientDescent)
	r.register("newton", r.runNewton)
	r.register("broyden", r.runBroyden)
	r.register("trust_region", r.runTrustRegion)
	r.register("penalty", r.runPenalty)
	r.register("barrier", r.runBarrier)
	r.register("kkt_check", r.runKKTCheck)
	r.register("power_iteration", r.runPowerIteration)
	r.register("qr_eigen", r.runQREigen)
	r.register("poisson_fd", r.runPoisson)
	r.register("svd_compress", r.runSVDCompress)
	r.register("fft", r.runFFT)
	r.register("trig_interp", r.runTrigInterp)
	return r
}

func (r *Registry) register(name string, fn Runner) {
	r.runners[name] = fn
}

// Algorithms lists the registered algorithm names in sorted order.
func (r *Registry) Algorithms() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether the algorithm name is registered.
func (r *Registry) Supported(name string) bool {
	_, ok := r.runners[name]
	return ok
}

// Run executes the named algorithm with the given JSON parameters.
func (r *Registry) Run(ctx context.Context, algorithm string, params json.RawMessage) (*Outcome, error) {
	fn, ok := r.runners[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, params)
}

// decode unmarshals params into dst and runs struct validation.
func (r *Registry) decode(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	if err := r.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return nil
}

func marshalOutcome(result any, trace []numeric.Iterate) (*Outcome, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("solver: encoding result: %w", err)
	}
	return &Outcome{Result: raw, Trace: trace}, nil
}
