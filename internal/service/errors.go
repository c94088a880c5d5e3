// Package service provides application-level services for managing
// users and solver runs.
package service

import "errors"

// Common service errors. Service methods return sentinel errors for
// expected conditions; callers check them with errors.Is and the API
// layer maps them to HTTP status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than
	// the one making the request. Maps to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrUnsupportedAlgorithm indicates a run was requested for an
	// algorithm the solver registry does not know. Maps to HTTP 422.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)
