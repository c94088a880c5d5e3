package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nvalden/numlab-api/internal/api/shared"
	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/service"
	"github.com/nvalden/numlab-api/internal/service/auth"
	"github.com/nvalden/numlab-api/internal/solver"
	"github.com/nvalden/numlab-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes
// without leaking internal error details to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Unknown algorithm requests
	case errors.Is(err, service.ErrUnsupportedAlgorithm),
		errors.Is(err, solver.ErrUnknownAlgorithm):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, solver.ErrBadParams),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this run"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrRunNotFound):
		return "Run not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrUnsupportedAlgorithm),
		errors.Is(err, solver.ErrUnknownAlgorithm):
		return "Unknown algorithm"

	case errors.Is(err, solver.ErrBadParams):
		return "Invalid solver parameters"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and safe message and
// writes the response. A non-empty defaultMsg overrides the mapped
// message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := defaultMsg
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns a validator error into a short
// user-friendly message without echoing submitted values.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'LoginRequest.Email' Error:Field validation for
		// 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
