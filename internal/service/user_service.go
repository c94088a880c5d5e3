package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/store"
)

// UserService provides user-related operations.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// GetUserByEmail retrieves a user by their email address
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser creates a new user with the specified email and password
	CreateUser(ctx context.Context, email, password string) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	db        *sql.DB
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, db *sql.DB, logger *slog.Logger) UserService {
	return &UserServiceImpl{
		userStore: userStore,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to retrieve user",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address
func (s *UserServiceImpl) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found by email")
		} else {
			s.logger.Error("failed to retrieve user by email", "error", err)
		}
		return nil, fmt.Errorf("failed to retrieve user by email: %w", err)
	}
	return user, nil
}

// CreateUser creates a new user with the specified email and password.
// The operation runs in a transaction.
func (s *UserServiceImpl) CreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		s.logger.Debug("invalid user data", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to create user with existing email")
		} else {
			s.logger.Error("failed to save user", "error", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}
