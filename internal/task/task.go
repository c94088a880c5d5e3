// Package task implements background processing of solver runs: a
// persistent task queue, a worker pool that drains it, and recovery of
// unfinished work after a restart.
package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeSolverRun identifies tasks that execute a solver run.
	TaskTypeSolverRun = "solver_run"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only tasks that have been in this state
	// longer than the specified duration are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance bound to the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}

// Rebuilder reconstructs an executable Task from its persisted form.
// Stores use it when loading tasks back from the database, where only
// the type and payload survive.
type Rebuilder interface {
	Rebuild(id uuid.UUID, taskType string, payload []byte, status TaskStatus) (Task, error)
}
