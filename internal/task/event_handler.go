package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/events"
)

// TaskFactory creates executable tasks from a run ID.
type TaskFactory interface {
	CreateTask(runID uuid.UUID) (Task, error)
}

// TaskSubmitter accepts tasks for background execution. It is satisfied
// by TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements events.EventHandler. It turns
// solver run request events into tasks and submits them to the runner.
type TaskFactoryEventHandler struct {
	factory TaskFactory
	runner  TaskSubmitter
	logger  *slog.Logger
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates an event handler that uses the
// given factory to create tasks and submits them to the given runner.
func NewTaskFactoryEventHandler(
	factory TaskFactory,
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes a task request event: extract the run ID from
// the payload, create the task, and submit it for execution. Events of
// other types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeSolverRun {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		RunID string `json:"run_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	runID, err := uuid.Parse(payload.RunID)
	if err != nil {
		h.logger.Error("invalid run ID",
			"error", err,
			"run_id", payload.RunID,
			"event_id", event.ID)
		return fmt.Errorf("invalid run ID: %w", err)
	}

	t, err := h.factory.CreateTask(runID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"run_id", runID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"run_id", runID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task submitted",
		"task_id", t.ID(),
		"run_id", runID,
		"event_id", event.ID)
	return nil
}
