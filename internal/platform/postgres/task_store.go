package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/platform/logger"
	"github.com/nvalden/numlab-api/internal/store"
	"github.com/nvalden/numlab-api/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using
// PostgreSQL. An optional task.Rebuilder restores execution logic to
// tasks loaded back from the database; without one, recovered tasks
// carry their persisted state but cannot be executed.
type PostgresTaskStore struct {
	db        store.DBTX
	rebuilder task.Rebuilder
}

// Ensure PostgresTaskStore implements task.TaskStore
var _ task.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, rebuilder task.Rebuilder) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:        db,
		rebuilder: rebuilder,
	}
}

// WithTx returns a TaskStore bound to the given transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:        tx,
		rebuilder: s.rebuilder,
	}
}

// SaveTask persists a task to the database.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// UpdateTaskStatus updates the status of a task in the database.
// Updating a task that no longer exists is a no-op.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("no task found with ID to update status", "task_id", taskID)
	}

	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status, filtered
// to those older than olderThan when it is non-zero.
func (s *PostgresTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{status}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		var (
			id           uuid.UUID
			taskType     string
			payload      []byte
			taskStatus   task.TaskStatus
			errorMessage sql.NullString
			createdAt    time.Time
			updatedAt    time.Time
		)

		if err := rows.Scan(&id, &taskType, &payload, &taskStatus, &errorMessage, &createdAt, &updatedAt); err != nil {
			log.Error("failed to scan task row", "status", status, "error", err)
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		t := s.rebuild(ctx, &storedTask{
			id:       id,
			taskType: taskType,
			payload:  payload,
			status:   taskStatus,
		})
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", "status", status, "error", err)
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// rebuild restores execution logic to a loaded task via the configured
// rebuilder, falling back to the inert stored form when that fails.
func (s *PostgresTaskStore) rebuild(ctx context.Context, st *storedTask) task.Task {
	if s.rebuilder == nil {
		return st
	}

	t, err := s.rebuilder.Rebuild(st.id, st.taskType, st.payload, st.status)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to rebuild task, keeping inert form",
			"task_id", st.id,
			"task_type", st.taskType,
			"error", err)
		return st
	}
	return t
}

// storedTask is the inert form of a task loaded from the database. It
// carries the persisted fields but has no execution logic.
type storedTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   task.TaskStatus
}

func (t *storedTask) ID() uuid.UUID           { return t.id }
func (t *storedTask) Type() string            { return t.taskType }
func (t *storedTask) Payload() []byte         { return t.payload }
func (t *storedTask) Status() task.TaskStatus { return t.status }

func (t *storedTask) Execute(ctx context.Context) error {
	return errors.New("no execution logic attached to stored task")
}
