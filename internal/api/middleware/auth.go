package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/identity-api/internal/core/ports"
)

// ClaimsKey is the echo context key holding the verified *ports.AccessClaims.
const ClaimsKey = "claims"

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*ports.AccessClaims, error)
}

// Auth validates the bearer access token and injects its claims into context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.VerifyAccessToken(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ClaimsKey, claims)
			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("role", string(claims.Role))

			return next(c)
		}
	}
}
