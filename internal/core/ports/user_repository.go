package ports

import (
	"context"

	"github.com/konekta/identity/internal/core/domain"
)

// UserRepository is the server-side persistence port for user records.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}
