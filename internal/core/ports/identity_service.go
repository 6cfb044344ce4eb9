package ports

import (
	"context"

	"github.com/konekta/identity/internal/core/domain"
)

// RegisterResult is what signup hands back to the transport layer. Token
// authenticates the fresh account immediately, so the onboarding calls that
// follow signup do not require a separate login. TempSecret is only set when
// the server generated a temporary credential; it is delivered out of band
// and never stored in clear.
type RegisterResult struct {
	User       *domain.User
	Token      string
	TempSecret string
}

// IdentityService implements the server side of the identity contract.
type IdentityService interface {
	Register(ctx context.Context, input SignupInput) (*RegisterResult, error)
	Login(ctx context.Context, email, secret string) (string, *domain.User, error)
	SetPassword(ctx context.Context, email, newSecret string) (*domain.User, error)
	UpdateProfile(ctx context.Context, email string, patch ProfilePatch) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TempCredentialStore tracks outstanding server-generated temporary
// credentials so they can expire.
type TempCredentialStore interface {
	Mark(ctx context.Context, email string) error
	IsOutstanding(ctx context.Context, email string) (bool, error)
	Clear(ctx context.Context, email string) error
}
