package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the role claim carried in access tokens.
type Role string

const (
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// User models an account that can authenticate. It is the aggregate root for
// its sessions: callers go through AddSession, RemoveSession and
// FindActiveResetSession instead of touching the collection directly.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	sessions []*Session
}

// NewUser builds an active user with a fresh identifier. The email is
// normalized so that uniqueness is case-insensitive.
func NewUser(firstName, lastName, email, passwordHash string, role Role, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sessions returns a copy of the user's session list in insertion order.
func (u *User) Sessions() []*Session {
	out := make([]*Session, len(u.sessions))
	copy(out, u.sessions)
	return out
}

// LoadSessions replaces the session collection. Stores use it when hydrating
// a user; sessions owned by another user are ignored.
func (u *User) LoadSessions(sessions []*Session) {
	u.sessions = u.sessions[:0]
	for _, s := range sessions {
		if s != nil && s.UserID == u.ID {
			u.sessions = append(u.sessions, s)
		}
	}
}

// AddSession appends s to the collection, binding it to this user.
func (u *User) AddSession(s *Session) {
	s.UserID = u.ID
	u.sessions = append(u.sessions, s)
}

// RemoveSession drops the session with the given id. It reports whether a
// session was removed.
func (u *User) RemoveSession(id string) bool {
	for i, s := range u.sessions {
		if s.ID == id {
			u.sessions = append(u.sessions[:i], u.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// FindActiveResetSession returns the reset-password session matching token
// that is still valid at now. Wrong token, wrong kind and expiry all yield
// false.
func (u *User) FindActiveResetSession(token string, now time.Time) (*Session, bool) {
	for _, s := range u.sessions {
		if s.IsUsableForReset(token, now) {
			return s, true
		}
	}
	return nil, false
}

// ChangePasswordHash replaces the stored password hash.
func (u *User) ChangePasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	u.UpdatedAt = now.UTC()
}
