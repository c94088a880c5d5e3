package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Run validation errors
var (
	ErrEmptyRunID     = errors.New("run ID cannot be empty")
	ErrEmptyRunUser   = errors.New("run must belong to a user")
	ErrEmptyAlgorithm = errors.New("algorithm name cannot be empty")
	ErrInvalidParams  = errors.New("run parameters must be a valid JSON object")
)

// RunStatus represents the lifecycle state of a solver run.
type RunStatus string

// Possible run status values
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid reports whether the status is one of the known values.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// Run is one solver execution requested by a user: an algorithm name,
// a JSON parameter document, and—once executed—a JSON result and
// iteration trace.
type Run struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Algorithm string          `json:"algorithm"`
	Params    json.RawMessage `json:"params"`
	Status    RunStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Trace     json.RawMessage `json:"trace,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRun creates a pending Run for the given user and algorithm,
// assigns a fresh UUID and timestamps, and validates the result. An
// empty params document is normalized to "{}".
func NewRun(userID uuid.UUID, algorithm string, params json.RawMessage) (*Run, error) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	run := &Run{
		ID:        uuid.New(),
		UserID:    userID,
		Algorithm: algorithm,
		Params:    params,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}

// Validate checks if the Run has valid data.
func (r *Run) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRunID
	}
	if r.UserID == uuid.Nil {
		return ErrEmptyRunUser
	}
	if r.Algorithm == "" {
		return ErrEmptyAlgorithm
	}
	if !json.Valid(r.Params) {
		return ErrInvalidParams
	}
	if !r.Status.Valid() {
		return ErrInvalidRunStatus
	}
	return nil
}

// Complete records a successful result and trace on the run.
func (r *Run) Complete(result, trace json.RawMessage) {
	r.Status = RunStatusCompleted
	r.Result = result
	r.Trace = trace
	r.Error = ""
	r.UpdatedAt = time.Now().UTC()
}

// Fail records a failure message on the run.
func (r *Run) Fail(message string) {
	r.Status = RunStatusFailed
	r.Error = message
	r.UpdatedAt = time.Now().UTC()
}
