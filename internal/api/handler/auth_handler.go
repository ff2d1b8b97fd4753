package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vetcare/identity-api/internal/api/metrics"
	"github.com/vetcare/identity-api/internal/core/domain"
	"github.com/vetcare/identity-api/internal/core/ports"
)

// AuthHandler exposes the session lifecycle over HTTP. Domain errors are
// returned as-is and rendered by the echo error handler.
type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieOptions
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies CookieOptions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, log: log}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) (err error) {
	defer observe("register", time.Now(), &err)

	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, userResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	})
}

// Login authenticates a user, returns an access token and sets the refresh
// token cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) (err error) {
	defer observe("login", time.Now(), &err)

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tokens, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	metrics.SessionsIssuedTotal.WithLabelValues(string(domain.TokenKindRefresh)).Inc()

	return h.writeTokens(c, tokens)
}

// RefreshToken rotates the refresh token and returns a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshToken  header    string          false  "Refresh token cookie"
// @Param        body          body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200           {object}  tokenResponse
// @Failure      401           {object}  map[string]string
// @Failure      409           {object}  map[string]string
// @Router       /api/v1/auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) (err error) {
	defer observe("refresh", time.Now(), &err)

	token, err := refreshTokenFrom(c)
	if err != nil {
		return err
	}
	if token == "" {
		h.log.Debug().Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("refresh without token")
	}

	tokens, err := h.authService.RefreshToken(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return h.writeTokens(c, tokens)
}

// Logout deletes the refresh session and clears the cookie.
//
// @Summary      Logout
// @Tags         auth
// @Param        body  body  refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) (err error) {
	defer observe("logout", time.Now(), &err)

	token, err := refreshTokenFrom(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	h.cookies.clearRefresh(c)
	return c.NoContent(http.StatusNoContent)
}

// ForgetPassword emails a reset link to the user.
//
// @Summary      Request a password reset email
// @Tags         auth
// @Accept       json
// @Param        body  body  forgetPasswordRequest  true  "Email and client reset page"
// @Success      202
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/auth/forget-password [post]
func (h *AuthHandler) ForgetPassword(c echo.Context) (err error) {
	defer observe("forget_password", time.Now(), &err)

	var req forgetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ForgetPassword(c.Request().Context(), req.Email, req.ClientURI); err != nil {
		return err
	}
	metrics.SessionsIssuedTotal.WithLabelValues(string(domain.TokenKindResetPassword)).Inc()
	return c.NoContent(http.StatusAccepted)
}

// ResetPassword sets a new password using a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Param        body  body  resetPasswordRequest  true  "New password and reset token"
// @Success      204
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) (err error) {
	defer observe("reset_password", time.Now(), &err)

	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.authService.ResetPassword(c.Request().Context(), ports.ResetPasswordInput{
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Token:           req.Token,
		Email:           req.Email,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the claims of the caller's access token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      string(claims.Role),
		ExpiresAt: claims.ExpiresAt,
	})
}

func (h *AuthHandler) writeTokens(c echo.Context, tokens *ports.AuthTokens) error {
	h.cookies.setRefresh(c, tokens.RefreshToken, tokens.RefreshTokenExpiresAt)

	expiresIn := int64(time.Until(tokens.AccessTokenExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		ExpiresAt:   tokens.AccessTokenExpiresAt,
	})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.Observe(operation, start, *err)
}
