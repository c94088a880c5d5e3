package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/nvalden/numlab-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. It handles domain validation
	// and password hashing internally.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// WithTx returns a UserStore bound to the provided transaction. The
	// transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) UserStore
}
