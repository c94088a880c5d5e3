package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/nvalden/numlab-api/internal/domain"
)

// RunStore defines the interface for solver run persistence.
type RunStore interface {
	// Create saves a new run to the store.
	// Returns a validation error if the run is invalid.
	Create(ctx context.Context, run *domain.Run) error

	// GetByID retrieves a run by its unique ID.
	// Returns ErrRunNotFound if the run does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// ListByUser retrieves the runs owned by the given user, most recent
	// first, limited to limit entries starting at offset.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Run, error)

	// Update persists the current state of an existing run, including
	// status, result, trace, and error message.
	// Returns ErrRunNotFound if the run does not exist.
	Update(ctx context.Context, run *domain.Run) error

	// WithTx returns a RunStore bound to the provided transaction. The
	// transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) RunStore
}
