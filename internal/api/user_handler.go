package api

import (
	"net/http"

	"github.com/nvalden/numlab-api/internal/api/shared"
	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/service"
)

// UserHandler handles user profile API requests.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe handles GET /users/me, returning the authenticated user's
// profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}
