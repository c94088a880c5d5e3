package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/platform/logger"
	"github.com/nvalden/numlab-api/internal/store"
)

// PostgresUserStore implements the store.UserStore interface using a
// PostgreSQL database as the storage backend. Password hashing happens
// here, at the persistence boundary, so plaintext passwords never reach
// the database.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
}

// Ensure PostgresUserStore implements store.UserStore
var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. The database connection is initialized and
// managed by the caller. Costs outside bcrypt's valid range fall back
// to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int) *PostgresUserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
	}
}

// WithTx returns a UserStore bound to the given transaction.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:         tx,
		bcryptCost: s.bcryptCost,
	}
}

// Create validates the user, hashes its plaintext password, and inserts
// the row. Returns store.ErrEmailExists when the email is already
// taken.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContext(ctx)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if user.Password == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrEmptyPassword)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hashed)
	user.Password = ""

	query := `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		log.Error("failed to insert user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID. Returns
// store.ErrUserNotFound if no such user exists.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by their email address. Returns
// store.ErrUserNotFound if no such user exists.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user      domain.User
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &createdAt, &updatedAt)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %v", store.ErrUserNotFound, err)
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}

	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = updatedAt.UTC()
	return &user, nil
}
