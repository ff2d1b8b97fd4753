package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/identity-api/internal/api/middleware"
	"github.com/vetcare/identity-api/internal/core/ports"
)

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// value means the route was registered without the middleware.
func ctxClaims(c echo.Context) (*ports.AccessClaims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*ports.AccessClaims)
	if claims == nil || claims.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
