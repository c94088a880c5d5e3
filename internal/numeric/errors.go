package numeric

import "errors"

// Common solver errors. Solver packages wrap these with context using
// fmt.Errorf("...: %w", err) so callers can classify failures with
// errors.Is without parsing messages.
var (
	// ErrMaxIterations is returned when a solver exhausts its iteration
	// budget before meeting its convergence tolerance.
	ErrMaxIterations = errors.New("maximum iterations reached without convergence")

	// ErrNotDescentDirection is returned when a line search is asked to
	// step along a direction d with gradᵀd >= 0.
	ErrNotDescentDirection = errors.New("search direction is not a descent direction")

	// ErrLineSearchFailed is returned when no step satisfying the line
	// search conditions is found within the trial budget.
	ErrLineSearchFailed = errors.New("line search failed to find an acceptable step")

	// ErrSingular is returned when a linear solve encounters a matrix
	// that is singular to working precision.
	ErrSingular = errors.New("matrix is singular to working precision")

	// ErrDimensionMismatch is returned when vector or matrix dimensions
	// are incompatible with the operation requested.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidParameter is returned when a solver parameter is outside
	// its valid range (e.g. a nonpositive tolerance).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInfeasibleStart is returned by methods that require a strictly
	// feasible starting point (e.g. the log-barrier method) when the
	// supplied point violates a constraint.
	ErrInfeasibleStart = errors.New("starting point is not strictly feasible")
)
