package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/platform/logger"
	"github.com/nvalden/numlab-api/internal/store"
)

// PostgresRunStore implements the store.RunStore interface using a
// PostgreSQL database as the storage backend. Params, result, and trace
// documents are stored as JSONB.
type PostgresRunStore struct {
	db store.DBTX
}

// Ensure PostgresRunStore implements store.RunStore
var _ store.RunStore = (*PostgresRunStore)(nil)

// NewPostgresRunStore creates a new PostgreSQL implementation of the
// RunStore interface. The database connection is initialized and
// managed by the caller.
func NewPostgresRunStore(db store.DBTX) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

// WithTx returns a RunStore bound to the given transaction.
func (s *PostgresRunStore) WithTx(tx *sql.Tx) store.RunStore {
	return &PostgresRunStore{db: tx}
}

// Create validates the run and inserts it.
func (s *PostgresRunStore) Create(ctx context.Context, run *domain.Run) error {
	log := logger.FromContext(ctx)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO runs (id, user_id, algorithm, params, status, result, trace, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.UserID,
		run.Algorithm,
		[]byte(run.Params),
		run.Status,
		nullableJSON(run.Result),
		nullableJSON(run.Trace),
		nullableString(run.Error),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to insert run",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a run by its unique ID. Returns store.ErrRunNotFound
// if no such run exists.
func (s *PostgresRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, user_id, algorithm, params, status, result, trace, error_message, created_at, updated_at
		FROM runs
		WHERE id = $1
	`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %v", store.ErrRunNotFound, err)
		}
		return nil, err
	}
	return run, nil
}

// ListByUser retrieves the runs owned by userID, most recent first.
func (s *PostgresRunStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Run, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, algorithm, params, status, result, trace, error_message, created_at, updated_at
		FROM runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query runs",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// Update persists the mutable fields of an existing run. Returns
// store.ErrRunNotFound if the run does not exist.
func (s *PostgresRunStore) Update(ctx context.Context, run *domain.Run) error {
	log := logger.FromContext(ctx)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE runs
		SET status = $1, result = $2, trace = $3, error_message = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		run.Status,
		nullableJSON(run.Result),
		nullableJSON(run.Trace),
		nullableString(run.Error),
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		log.Error("failed to update run",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "run"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrRunNotFound, err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		run       domain.Run
		params    []byte
		result    sql.NullString
		trace     sql.NullString
		errMsg    sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&run.ID,
		&run.UserID,
		&run.Algorithm,
		&params,
		&run.Status,
		&result,
		&trace,
		&errMsg,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}

	run.Params = json.RawMessage(params)
	if result.Valid {
		run.Result = json.RawMessage(result.String)
	}
	if trace.Valid {
		run.Trace = json.RawMessage(trace.String)
	}
	run.Error = errMsg.String
	run.CreatedAt = createdAt.UTC()
	run.UpdatedAt = updatedAt.UTC()
	return &run, nil
}

// nullableJSON maps an empty JSON document to NULL for storage.
func nullableJSON(doc json.RawMessage) any {
	if len(doc) == 0 {
		return nil
	}
	return []byte(doc)
}

// nullableString maps an empty string to NULL for storage.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
