package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nvalden/numlab-api/internal/config"
	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/service/auth"
	"github.com/nvalden/numlab-api/internal/store"
)

// mockUserStore is an in-memory UserStore for handler tests. Create
// hashes with bcrypt.MinCost to keep the tests fast.
type mockUserStore struct {
	usersByEmail map[string]*domain.User
	createErr    error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{usersByEmail: make(map[string]*domain.User)}
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.usersByEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.Password = ""
	m.usersByEmail[user.Email] = user
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range m.usersByEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

func newTestJWTService(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-that-is-32-chars-min!!",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 60 * 24,
	})
	require.NoError(t, err)
	return svc
}

func newTestAuthHandler(t *testing.T, users *mockUserStore) *AuthHandler {
	t.Helper()
	return NewAuthHandler(users, newTestJWTService(t), auth.NewBcryptVerifier(), 15*time.Minute)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and returns token pair", func(t *testing.T) {
		t.Parallel()
		users := newMockUserStore()
		handler := newTestAuthHandler(t, users)

		w := postJSON(t, handler.Register, "/api/auth/register", RegisterRequest{
			Email:    "student@example.com",
			Password: "correct-horse-battery",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEqual(t, uuid.Nil, resp.UserID)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.NotEmpty(t, resp.ExpiresAt)

		stored, err := users.GetByEmail(context.Background(), "student@example.com")
		require.NoError(t, err)
		assert.Empty(t, stored.Password)
		assert.NotEmpty(t, stored.HashedPassword)
	})

	t.Run("rejects duplicate email with conflict", func(t *testing.T) {
		t.Parallel()
		users := newMockUserStore()
		handler := newTestAuthHandler(t, users)

		first := postJSON(t, handler.Register, "/api/auth/register", RegisterRequest{
			Email:    "dup@example.com",
			Password: "correct-horse-battery",
		})
		require.Equal(t, http.StatusCreated, first.Code)

		second := postJSON(t, handler.Register, "/api/auth/register", RegisterRequest{
			Email:    "dup@example.com",
			Password: "correct-horse-battery",
		})
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()
		handler := newTestAuthHandler(t, newMockUserStore())

		w := postJSON(t, handler.Register, "/api/auth/register", RegisterRequest{
			Email:    "short@example.com",
			Password: "tooshort",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()
		handler := newTestAuthHandler(t, newMockUserStore())

		req := httptest.NewRequest(
			http.MethodPost,
			"/api/auth/register",
			bytes.NewReader([]byte("{not json")),
		)
		w := httptest.NewRecorder()
		handler.Register(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	registerUser := func(t *testing.T, users *mockUserStore, email, password string) {
		t.Helper()
		user, err := domain.NewUser(email, password)
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), user))
	}

	t.Run("returns token pair for valid credentials", func(t *testing.T) {
		t.Parallel()
		users := newMockUserStore()
		registerUser(t, users, "login@example.com", "correct-horse-battery")
		handler := newTestAuthHandler(t, users)

		w := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
			Email:    "login@example.com",
			Password: "correct-horse-battery",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		t.Parallel()
		users := newMockUserStore()
		registerUser(t, users, "wrong@example.com", "correct-horse-battery")
		handler := newTestAuthHandler(t, users)

		w := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
			Email:    "wrong@example.com",
			Password: "not-the-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects unknown email with the same status as wrong password", func(t *testing.T) {
		t.Parallel()
		handler := newTestAuthHandler(t, newMockUserStore())

		w := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("exchanges refresh token for a new pair", func(t *testing.T) {
		t.Parallel()
		jwtService := newTestJWTService(t)
		handler := NewAuthHandler(
			newMockUserStore(),
			jwtService,
			auth.NewBcryptVerifier(),
			15*time.Minute,
		)

		userID := uuid.New()
		refresh, err := jwtService.GenerateRefreshToken(context.Background(), userID)
		require.NoError(t, err)

		w := postJSON(t, handler.RefreshToken, "/api/auth/refresh", RefreshTokenRequest{
			RefreshToken: refresh,
		})

		require.Equal(t, http.StatusOK, w.Code)

		var resp RefreshTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		claims, err := jwtService.ValidateToken(context.Background(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("rejects an access token used as refresh token", func(t *testing.T) {
		t.Parallel()
		jwtService := newTestJWTService(t)
		handler := NewAuthHandler(
			newMockUserStore(),
			jwtService,
			auth.NewBcryptVerifier(),
			15*time.Minute,
		)

		access, err := jwtService.GenerateToken(context.Background(), uuid.New())
		require.NoError(t, err)

		w := postJSON(t, handler.RefreshToken, "/api/auth/refresh", RefreshTokenRequest{
			RefreshToken: access,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		t.Parallel()
		handler := newTestAuthHandler(t, newMockUserStore())

		w := postJSON(t, handler.RefreshToken, "/api/auth/refresh", RefreshTokenRequest{
			RefreshToken: "not.a.token",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
