package ports

import (
	"context"

	"github.com/konekta/identity/internal/core/domain"
)

// ProfileSetupInput carries the fields of the final profile-setup step.
type ProfileSetupInput struct {
	Username  string
	FullName  string
	Bio       string
	AvatarRef string
}

// SessionService owns the session lifecycle and routes a user through the
// signup → set-password → onboarding → profile-setup pipeline. Mutating calls
// overlap-protect each other: while one is in flight the others fail fast
// with domain.ErrBusy. Reads never block.
type SessionService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.Session, error)
	Login(ctx context.Context, email, secret string) (*domain.Session, error)
	SetPassword(ctx context.Context, secret string) (*domain.Session, error)
	// CompleteOnboarding records interests and marks onboarding done. An
	// explicit skip with no interests is a legal terminal state.
	CompleteOnboarding(ctx context.Context, interests []string, skip bool) (*domain.Session, error)
	CompleteProfileSetup(ctx context.Context, input ProfileSetupInput) (*domain.Session, error)
	// Logout clears the session pointer only; the user record stays.
	Logout(ctx context.Context) error
	// Current returns the active session with a freshly derived stage, or
	// domain.ErrSessionNotFound.
	Current(ctx context.Context) (*domain.Session, error)
}
