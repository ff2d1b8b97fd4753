package ports

import (
	"context"
	"time"

	"github.com/vetcare/identity-api/internal/core/domain"
)

// AuthTokens is returned by Login and RefreshToken. The refresh token and
// its expiry are what a boundary layer needs to set the refresh cookie.
type AuthTokens struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	UserID                string
	SessionID             string
}

// RegisterInput carries the data needed to create an account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

// ResetPasswordInput carries a password change authorized by a reset token.
type ResetPasswordInput struct {
	Password        string
	ConfirmPassword string
	Token           string
	Email           string
}

// AuthService is the session lifecycle engine. Every failure is a
// *domain.Error.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*AuthTokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgetPassword(ctx context.Context, email, clientURI string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
}
