package ports

import (
	"context"
	"time"

	"github.com/vetcare/identity-api/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	TokenID   string
	UserID    string
	Email     string
	Name      string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints access tokens and opaque refresh/reset tokens.
type TokenIssuer interface {
	IssueAccessToken(user *domain.User) (string, error)
	// IssueOpaqueToken returns a cryptographically random, URL-safe string.
	IssueOpaqueToken() (string, error)
	AccessTokenLifetime() time.Duration
	VerifyAccessToken(token string) (*AccessClaims, error)
}

// Notifier delivers an HTML message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// TokenLocker serializes work on a single token across processes. Acquire
// returns domain.ErrConcurrentUpdate when another holder owns the lock.
type TokenLocker interface {
	Acquire(ctx context.Context, token string) (release func(), err error)
}
