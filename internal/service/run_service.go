package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/events"
	"github.com/nvalden/numlab-api/internal/store"
	"github.com/nvalden/numlab-api/internal/task"
)

// Pagination bounds for run listings.
const (
	DefaultRunPageSize = 20
	MaxRunPageSize     = 100
)

// AlgorithmCatalog is the view of the solver registry the run service
// needs: which algorithms exist. It is satisfied by solver.Registry.
type AlgorithmCatalog interface {
	Supported(name string) bool
	Algorithms() []string
}

// RunService provides solver run operations: creating runs, dispatching
// them for background execution, and retrieving their state.
type RunService interface {
	// CreateRun records a pending run for the user and emits an event
	// requesting its background execution.
	CreateRun(ctx context.Context, userID uuid.UUID, algorithm string, params json.RawMessage) (*domain.Run, error)

	// GetRun retrieves a run owned by the given user.
	// Returns ErrNotOwned when the run belongs to someone else.
	GetRun(ctx context.Context, userID, runID uuid.UUID) (*domain.Run, error)

	// ListRuns retrieves the user's runs, most recent first.
	ListRuns(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Run, error)

	// Algorithms lists the available algorithm names.
	Algorithms() []string
}

// RunServiceImpl implements the RunService interface
type RunServiceImpl struct {
	runStore store.RunStore
	catalog  AlgorithmCatalog
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewRunService creates a new RunService
func NewRunService(
	runStore store.RunStore,
	catalog AlgorithmCatalog,
	emitter events.EventEmitter,
	logger *slog.Logger,
) RunService {
	return &RunServiceImpl{
		runStore: runStore,
		catalog:  catalog,
		emitter:  emitter,
		logger:   logger.With("component", "run_service"),
	}
}

// CreateRun validates the algorithm name, persists a pending run, and
// emits a task request event for its execution.
func (s *RunServiceImpl) CreateRun(
	ctx context.Context,
	userID uuid.UUID,
	algorithm string,
	params json.RawMessage,
) (*domain.Run, error) {
	if !s.catalog.Supported(algorithm) {
		s.logger.Debug("rejected run with unsupported algorithm", "algorithm", algorithm)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	run, err := domain.NewRun(userID, algorithm, params)
	if err != nil {
		s.logger.Debug("invalid run data", "error", err)
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if err := s.runStore.Create(ctx, run); err != nil {
		s.logger.Error("failed to save run", "error", err, "run_id", run.ID)
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeSolverRun, map[string]string{
		"run_id": run.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task request event: %w", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		// The run exists but will never execute; mark it failed so the
		// client is not left polling a permanently pending run.
		s.logger.Error("failed to emit run execution event", "error", err, "run_id", run.ID)
		run.Fail("failed to schedule run for execution")
		if updateErr := s.runStore.Update(ctx, run); updateErr != nil {
			s.logger.Error("failed to mark unscheduled run as failed",
				"error", updateErr,
				"run_id", run.ID)
		}
		return nil, fmt.Errorf("failed to schedule run: %w", err)
	}

	s.logger.Info("run created",
		"run_id", run.ID,
		"user_id", userID,
		"algorithm", algorithm)
	return run, nil
}

// GetRun retrieves a run and verifies the caller owns it.
func (s *RunServiceImpl) GetRun(ctx context.Context, userID, runID uuid.UUID) (*domain.Run, error) {
	run, err := s.runStore.GetByID(ctx, runID)
	if err != nil {
		if !errors.Is(err, store.ErrRunNotFound) {
			s.logger.Error("failed to retrieve run", "error", err, "run_id", runID)
		}
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}

	if run.UserID != userID {
		s.logger.Debug("run access denied", "run_id", runID, "user_id", userID)
		return nil, ErrNotOwned
	}

	return run, nil
}

// ListRuns retrieves the user's runs, most recent first. Limits outside
// (0, MaxRunPageSize] are clamped.
func (s *RunServiceImpl) ListRuns(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = DefaultRunPageSize
	}
	if limit > MaxRunPageSize {
		limit = MaxRunPageSize
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := s.runStore.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Algorithms lists the available algorithm names.
func (s *RunServiceImpl) Algorithms() []string {
	return s.catalog.Algorithms()
}
