package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/solver"
)

// Common errors
var (
	ErrNilRunStore = errors.New("run store cannot be nil")
	ErrNilSolver   = errors.New("solver cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
	ErrEmptyRunID  = errors.New("run ID cannot be empty")
)

// RunUpdater provides the run access a task needs during execution.
// It is a narrow view of store.RunStore so tests can substitute fakes.
type RunUpdater interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
}

// AlgorithmRunner executes algorithms by name. It is satisfied by
// solver.Registry.
type AlgorithmRunner interface {
	Run(ctx context.Context, algorithm string, params json.RawMessage) (*solver.Outcome, error)
}

// solverRunPayload is the serialized data stored with the task.
type solverRunPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// SolverRunTask implements the Task interface for executing one solver
// run. Execute loads the run, marks it running, invokes the algorithm,
// and records the result or failure on the run record.
type SolverRunTask struct {
	id      uuid.UUID
	runID   uuid.UUID
	runs    RunUpdater
	runner  AlgorithmRunner
	timeout time.Duration
	logger  *slog.Logger
	status  TaskStatus
}

// NewSolverRunTask creates a new solver run task. A non-positive
// timeout disables the per-run deadline.
func NewSolverRunTask(
	runID uuid.UUID,
	runs RunUpdater,
	runner AlgorithmRunner,
	timeout time.Duration,
	logger *slog.Logger,
) (*SolverRunTask, error) {
	if runs == nil {
		return nil, ErrNilRunStore
	}
	if runner == nil {
		return nil, ErrNilSolver
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if runID == uuid.Nil {
		return nil, ErrEmptyRunID
	}

	return &SolverRunTask{
		id:      uuid.New(),
		runID:   runID,
		runs:    runs,
		runner:  runner,
		timeout: timeout,
		logger:  logger.With("task_type", TaskTypeSolverRun, "run_id", runID),
		status:  TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SolverRunTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SolverRunTask) Type() string {
	return TaskTypeSolverRun
}

// Payload returns the task data as a byte slice
func (t *SolverRunTask) Payload() []byte {
	data, err := json.Marshal(solverRunPayload{RunID: t.runID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *SolverRunTask) Status() TaskStatus {
	return t.status
}

// Execute runs the solver run lifecycle: mark the run as running,
// execute the algorithm under the configured timeout, and persist
// either the result and trace or the failure message.
func (t *SolverRunTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting solver run task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	run, err := t.runs.GetByID(ctx, t.runID)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to retrieve run", "error", err)
		return fmt.Errorf("failed to retrieve run: %w", err)
	}

	run.Status = domain.RunStatusRunning
	run.UpdatedAt = time.Now().UTC()
	if err := t.runs.Update(ctx, run); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to mark run as running", "error", err)
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	outcome, err := t.runner.Run(runCtx, run.Algorithm, run.Params)
	if err != nil {
		run.Fail(err.Error())
		if updateErr := t.runs.Update(ctx, run); updateErr != nil {
			t.logger.Error("failed to record run failure", "error", updateErr)
		}
		t.status = TaskStatusFailed
		t.logger.Error("solver execution failed", "algorithm", run.Algorithm, "error", err)
		return fmt.Errorf("solver execution failed: %w", err)
	}

	trace, err := json.Marshal(outcome.Trace)
	if err != nil {
		// The result is still worth keeping; store it without a trace.
		t.logger.Error("failed to encode trace", "error", err)
		trace = nil
	}

	run.Complete(outcome.Result, trace)
	if err := t.runs.Update(ctx, run); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to record run result", "error", err)
		return fmt.Errorf("failed to record run result: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("solver run task completed", "algorithm", run.Algorithm)
	return nil
}
