package domain

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

// TokenKind identifies what a session token authorizes.
type TokenKind string

const (
	TokenKindRefresh       TokenKind = "refresh"
	TokenKindResetPassword TokenKind = "reset_password"
)

const (
	RefreshSessionLifetime = 7 * 24 * time.Hour
	ResetSessionLifetime   = 15 * time.Minute
)

// Session binds a token to its owner, its kind and its expiry. Refresh
// sessions are rotated in place; reset sessions authorize one password change.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	Kind      TokenKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	// Version is maintained by the store; updates and deletes only apply when
	// it still matches the persisted value.
	Version int64 `json:"-"`
}

// NewSession creates a session of the given kind that expires lifetime after now.
func NewSession(kind TokenKind, token string, now time.Time, lifetime time.Duration) *Session {
	now = now.UTC()
	return &Session{
		ID:        uuid.NewString(),
		Token:     token,
		Kind:      kind,
		ExpiresAt: now.Add(lifetime),
		CreatedAt: now,
	}
}

// IsExpired reports whether the session expired strictly before now. A
// session expiring exactly at now is still valid.
func (s *Session) IsExpired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// IsUsableForReset reports whether the session is a reset-password session
// for token whose expiry is strictly after now.
func (s *Session) IsUsableForReset(token string, now time.Time) bool {
	if s.Kind != TokenKindResetPassword || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return false
	}
	return s.ExpiresAt.After(now)
}

// Rotate overwrites the token in place. The previous value stops resolving
// once the change is committed.
func (s *Session) Rotate(token string) {
	s.Token = token
}

// Extend moves the expiry to lifetime after now.
func (s *Session) Extend(now time.Time, lifetime time.Duration) {
	s.ExpiresAt = now.UTC().Add(lifetime)
}
