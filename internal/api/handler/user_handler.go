package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/identity-api/internal/core/ports"
)

// UserHandler serves read-only account lookups.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// GetByID returns the public profile of an account.
//
// @Summary      Get user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userProfileResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/{id} [get]
func (h *UserHandler) GetByID(c echo.Context) (err error) {
	defer observe("get_user", time.Now(), &err)

	user, err := h.authService.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserProfileResponse(user))
}
