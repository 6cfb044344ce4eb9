package ports

import (
	"context"

	"github.com/konekta/identity/internal/core/domain"
)

// CredentialStore persists the local user record set plus the single active
// session pointer. Implementations must persist synchronously: when Insert or
// Replace returns nil the write is durable.
type CredentialStore interface {
	// FindByEmail looks a record up by normalized email.
	// Returns domain.ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByUsername looks a record up by username, case-insensitively.
	// Returns domain.ErrUserNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Insert adds a new record. Returns domain.ErrEmailTaken when the
	// normalized email is already present.
	Insert(ctx context.Context, user *domain.User) error
	// Replace overwrites the record with the same id wholesale.
	// Returns domain.ErrUserNotFound when the id is unknown.
	Replace(ctx context.Context, user *domain.User) error
	// ListPendingSync returns records still awaiting remote acknowledgement.
	ListPendingSync(ctx context.Context) ([]*domain.User, error)

	// CurrentSession resolves the active session pointer to its user.
	// Returns domain.ErrSessionNotFound when no session is set or the
	// backing record has disappeared.
	CurrentSession(ctx context.Context) (*domain.User, error)
	SetSession(ctx context.Context, user *domain.User) error
	ClearSession(ctx context.Context) error
}
