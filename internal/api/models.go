package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// UserResponse defines the representation of a user profile.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRunRequest defines the payload for creating a solver run.
type CreateRunRequest struct {
	// Algorithm is the registered solver algorithm name
	Algorithm string `json:"algorithm" validate:"required"`

	// Params is the algorithm-specific parameter document
	Params json.RawMessage `json:"params,omitempty"`
}

// RunResponse defines the representation of a solver run.
type RunResponse struct {
	ID        uuid.UUID       `json:"id"`
	Algorithm string          `json:"algorithm"`
	Params    json.RawMessage `json:"params"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Trace     json.RawMessage `json:"trace,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunListResponse defines the paginated run listing response.
type RunListResponse struct {
	Runs   []RunResponse `json:"runs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// AlgorithmsResponse lists the available solver algorithms.
type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
}
