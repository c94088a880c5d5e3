package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvalden/numlab-api/internal/config"
	"github.com/nvalden/numlab-api/internal/service/auth"
)

func newTestJWTService(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-that-is-32-chars-min!!",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	jwtService := newTestJWTService(t)
	middleware := NewAuthMiddleware(jwtService)

	// next records whether it ran and what user ID it saw.
	var gotUserID uuid.UUID
	var nextCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		gotUserID, _ = GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})

	serve := func(authHeader string) *httptest.ResponseRecorder {
		nextCalled = false
		gotUserID = uuid.Nil
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		middleware.Authenticate(next).ServeHTTP(w, req)
		return w
	}

	t.Run("passes valid token and sets user ID", func(t *testing.T) {
		userID := uuid.New()
		token, err := jwtService.GenerateToken(context.Background(), userID)
		require.NoError(t, err)

		w := serve("Bearer " + token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, nextCalled)
		assert.Equal(t, userID, gotUserID)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		w := serve("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, nextCalled)
	})

	t.Run("rejects non-bearer scheme", func(t *testing.T) {
		w := serve("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, nextCalled)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		w := serve("Bearer not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, nextCalled)
	})

	t.Run("rejects refresh token on access routes", func(t *testing.T) {
		refresh, err := jwtService.GenerateRefreshToken(context.Background(), uuid.New())
		require.NoError(t, err)

		w := serve("Bearer " + refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, nextCalled)
	})
}
