// Package memory provides an in-process CredentialStore. It enforces the same
// uniqueness and versioning rules as the Mongo store and is used by tests and
// local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vetcare/identity-api/internal/core/domain"
)

type CredentialStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.User    // by id, sessions not loaded
	emails   map[string]string          // email -> user id
	sessions map[string]*domain.Session // by id
	tokens   map[string]string          // token -> session id
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		users:    make(map[string]*domain.User),
		emails:   make(map[string]string),
		sessions: make(map[string]*domain.Session),
		tokens:   make(map[string]string),
	}
}

func (s *CredentialStore) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, exists := s.emails[email]; exists {
		return domain.ErrDuplicateKey
	}
	if _, exists := s.users[user.ID]; exists {
		return domain.ErrDuplicateKey
	}
	s.users[user.ID] = cloneUser(user)
	s.emails[email] = user.ID
	return nil
}

func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return s.hydrate(id), nil
}

func (s *CredentialStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.hydrate(id)
	if user == nil {
		return nil, domain.ErrRecordNotFound
	}
	return user, nil
}

func (s *CredentialStore) FindSessionByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return nil, nil, domain.ErrRecordNotFound
	}
	session := s.sessions[id]
	user := s.hydrate(session.UserID)
	if user == nil {
		return nil, nil, domain.ErrRecordNotFound
	}
	for _, owned := range user.Sessions() {
		if owned.ID == id {
			return owned, user, nil
		}
	}
	return nil, nil, domain.ErrRecordNotFound
}

// Commit validates every change before applying any of them.
func (s *CredentialStore) Commit(ctx context.Context, changes *domain.ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if changes == nil || changes.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(changes); err != nil {
		return err
	}

	for _, cs := range changes.CreatedSessions {
		stored := *cs
		stored.Version = 1
		s.sessions[stored.ID] = &stored
		s.tokens[stored.Token] = stored.ID
		cs.Version = stored.Version
	}
	for _, us := range changes.UpdatedSessions {
		stored := s.sessions[us.ID]
		delete(s.tokens, stored.Token)
		stored.Token = us.Token
		stored.ExpiresAt = us.ExpiresAt
		stored.Version++
		s.tokens[stored.Token] = stored.ID
		us.Version = stored.Version
	}
	for _, ds := range changes.DeletedSessions {
		stored := s.sessions[ds.ID]
		delete(s.tokens, stored.Token)
		delete(s.sessions, ds.ID)
	}
	for _, u := range changes.UpdatedUsers {
		stored := s.users[u.ID]
		stored.FirstName = u.FirstName
		stored.LastName = u.LastName
		stored.PasswordHash = u.PasswordHash
		stored.Role = u.Role
		stored.IsActive = u.IsActive
		stored.UpdatedAt = u.UpdatedAt
	}
	return nil
}

func (s *CredentialStore) validate(changes *domain.ChangeSet) error {
	pending := make(map[string]string) // token -> session id claimed by this change set

	claim := func(token, sessionID string) error {
		if owner, ok := s.tokens[token]; ok && owner != sessionID {
			return fmt.Errorf("session token: %w", domain.ErrDuplicateKey)
		}
		if owner, ok := pending[token]; ok && owner != sessionID {
			return fmt.Errorf("session token: %w", domain.ErrDuplicateKey)
		}
		pending[token] = sessionID
		return nil
	}

	for _, cs := range changes.CreatedSessions {
		if _, exists := s.sessions[cs.ID]; exists {
			return fmt.Errorf("session %s: %w", cs.ID, domain.ErrDuplicateKey)
		}
		if _, ok := s.users[cs.UserID]; !ok {
			return fmt.Errorf("session owner %s: %w", cs.UserID, domain.ErrRecordNotFound)
		}
		if err := claim(cs.Token, cs.ID); err != nil {
			return err
		}
	}
	for _, us := range changes.UpdatedSessions {
		stored, ok := s.sessions[us.ID]
		if !ok || stored.Version != us.Version {
			return fmt.Errorf("session %s: %w", us.ID, domain.ErrConcurrentUpdate)
		}
		if err := claim(us.Token, us.ID); err != nil {
			return err
		}
	}
	for _, ds := range changes.DeletedSessions {
		stored, ok := s.sessions[ds.ID]
		if !ok || stored.Version != ds.Version {
			return fmt.Errorf("session %s: %w", ds.ID, domain.ErrConcurrentUpdate)
		}
	}
	for _, u := range changes.UpdatedUsers {
		if _, ok := s.users[u.ID]; !ok {
			return fmt.Errorf("user %s: %w", u.ID, domain.ErrRecordNotFound)
		}
	}
	return nil
}

// hydrate returns a copy of the user with copies of its sessions, oldest
// first. Callers must hold the lock.
func (s *CredentialStore) hydrate(userID string) *domain.User {
	stored, ok := s.users[userID]
	if !ok {
		return nil
	}
	user := cloneUser(stored)

	var owned []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			clone := *sess
			owned = append(owned, &clone)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].CreatedAt.Before(owned[j].CreatedAt)
	})
	user.LoadSessions(owned)
	return user
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	return &domain.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
