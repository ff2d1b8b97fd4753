package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/v1/auth"
)

// CookieOptions controls the attributes of the refresh token cookie.
// Secure is only disabled for plain-HTTP local development.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) setRefresh(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (o CookieOptions) clearRefresh(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// refreshTokenFrom prefers the cookie and falls back to the request body.
func refreshTokenFrom(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	var req refreshRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}
	return req.RefreshToken, nil
}
