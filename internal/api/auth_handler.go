package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/api/shared"
	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/service/auth"
	"github.com/nvalden/numlab-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	tokenLifetime    time.Duration
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
// tokenLifetime is the access token lifetime, used to report expiry to
// clients.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	tokenLifetime time.Duration,
) *AuthHandler {
	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		tokenLifetime:    tokenLifetime,
		validator:        validator.New(),
	}
}

// generateTokenPair issues an access and refresh token for the user.
func (h *AuthHandler) generateTokenPair(ctx context.Context, userID uuid.UUID) (access, refresh string, err error) {
	access, err = h.jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return "", "", err
	}
	refresh, err = h.jwtService.GenerateRefreshToken(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (h *AuthHandler) expiresAt() string {
	return time.Now().UTC().Add(h.tokenLifetime).Format(time.RFC3339)
}

// Register handles the /auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := domain.NewUser(req.Email, req.Password)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user data")
		return
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already exists")
			return
		}
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	access, refresh, err := h.generateTokenPair(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to generate tokens", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    h.expiresAt(),
	})
}

// Login handles the /auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	access, refresh, err := h.generateTokenPair(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to generate tokens", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    h.expiresAt(),
	})
}

// RefreshToken handles the /auth/refresh endpoint, exchanging a valid
// refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	access, refresh, err := h.generateTokenPair(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("failed to generate tokens", "error", err, "user_id", claims.UserID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    h.expiresAt(),
	})
}
