package ports

import (
	"context"

	"github.com/vetcare/identity-api/internal/core/domain"
)

// CredentialStore persists users and their sessions.
//
// Lookups return domain.ErrRecordNotFound when nothing matches. Commit applies
// a change set atomically: session updates and deletes only succeed when the
// stored version equals the one carried by the session, otherwise the whole
// commit fails with domain.ErrConcurrentUpdate. Token and email uniqueness
// violations fail with domain.ErrDuplicateKey.
type CredentialStore interface {
	// FindUserByEmail returns the user with its sessions loaded.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindUserByID returns the user with its sessions loaded.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	// FindSessionByToken returns the session holding token and its owner.
	FindSessionByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	Commit(ctx context.Context, changes *domain.ChangeSet) error
}
