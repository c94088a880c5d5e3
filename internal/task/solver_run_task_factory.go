package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SolverRunTaskFactory creates SolverRunTask instances with their
// dependencies wired in. It also implements Rebuilder so tasks loaded
// back from the database regain their execution logic.
type SolverRunTaskFactory struct {
	runs    RunUpdater
	runner  AlgorithmRunner
	timeout time.Duration
	logger  *slog.Logger
}

// Ensure SolverRunTaskFactory implements Rebuilder
var _ Rebuilder = (*SolverRunTaskFactory)(nil)

// NewSolverRunTaskFactory creates a new factory for solver run tasks.
func NewSolverRunTaskFactory(
	runs RunUpdater,
	runner AlgorithmRunner,
	timeout time.Duration,
	logger *slog.Logger,
) *SolverRunTaskFactory {
	return &SolverRunTaskFactory{
		runs:    runs,
		runner:  runner,
		timeout: timeout,
		logger:  logger.With("component", "solver_run_task_factory"),
	}
}

// CreateTask creates a new task that will execute the given run.
func (f *SolverRunTaskFactory) CreateTask(runID uuid.UUID) (Task, error) {
	return NewSolverRunTask(runID, f.runs, f.runner, f.timeout, f.logger)
}

// Rebuild reconstructs an executable task from its persisted payload.
// Only solver run tasks are recognized.
func (f *SolverRunTaskFactory) Rebuild(
	id uuid.UUID,
	taskType string,
	payload []byte,
	status TaskStatus,
) (Task, error) {
	if taskType != TaskTypeSolverRun {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	var p solverRunPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	t, err := NewSolverRunTask(p.RunID, f.runs, f.runner, f.timeout, f.logger)
	if err != nil {
		return nil, err
	}
	// Keep the persisted identity and state rather than the fresh ones.
	t.id = id
	t.status = status
	return t, nil
}
