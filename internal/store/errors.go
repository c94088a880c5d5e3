// Package store provides abstractions and implementations for data
// persistence.
package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a
	// duplicate of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation
	// before being stored. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrRunNotFound indicates that the requested run does not exist.
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// ErrEmailExists indicates that a user with the given email already
	// exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
