package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/store"
)

// mockUserService is a scripted UserService for handler tests.
type mockUserService struct {
	getUserFn func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

func (m *mockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return m.getUserFn(ctx, userID)
}

func (m *mockUserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (m *mockUserService) CreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	return nil, nil
}

func TestUserHandler_GetMe(t *testing.T) {
	t.Parallel()

	t.Run("returns the authenticated user's profile", func(t *testing.T) {
		t.Parallel()
		user, err := domain.NewUser("me@example.com", "correct-horse-battery")
		require.NoError(t, err)

		svc := &mockUserService{
			getUserFn: func(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
				require.Equal(t, user.ID, userID)
				return user, nil
			},
		}
		handler := NewUserHandler(svc)

		w := httptest.NewRecorder()
		handler.GetMe(w, authedRequest(http.MethodGet, "/users/me", user.ID, nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.ID)
		assert.Equal(t, "me@example.com", resp.Email)
	})

	t.Run("requires authentication context", func(t *testing.T) {
		t.Parallel()
		handler := NewUserHandler(&mockUserService{})

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		w := httptest.NewRecorder()
		handler.GetMe(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reports missing user", func(t *testing.T) {
		t.Parallel()
		svc := &mockUserService{
			getUserFn: func(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
				return nil, fmt.Errorf("failed to retrieve user: %w", store.ErrUserNotFound)
			},
		}
		handler := NewUserHandler(svc)

		w := httptest.NewRecorder()
		handler.GetMe(w, authedRequest(http.MethodGet, "/users/me", uuid.New(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
