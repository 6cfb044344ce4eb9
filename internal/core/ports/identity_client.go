package ports

import (
	"context"
)

// SignupInput carries the fields collected by the signup form. Secret is
// optional: under the temporary-credential flow the server generates one.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Secret    string
}

// ProfilePatch is a partial profile update. Nil pointer fields (and a nil
// Interests slice) mean "not supplied" and must leave the stored value alone.
type ProfilePatch struct {
	Username  *string
	FullName  *string
	Bio       *string
	AvatarRef *string
	Interests []string

	IsNewUser            *bool
	IsPasswordSet        *bool
	OnboardingComplete   *bool
	ProfileSetupComplete *bool
}

// IsZero reports whether the patch carries no fields at all.
func (p ProfilePatch) IsZero() bool {
	return p.Username == nil && p.FullName == nil && p.Bio == nil &&
		p.AvatarRef == nil && p.Interests == nil && p.IsNewUser == nil &&
		p.IsPasswordSet == nil && p.OnboardingComplete == nil &&
		p.ProfileSetupComplete == nil
}

// RemoteUser is the canonical projection of whatever wire shape the remote
// identity service speaks. Pointer fields distinguish "omitted" from "empty":
// the reconciler only lets the remote side win fields it actually returned.
type RemoteUser struct {
	ID        *string
	Email     *string
	FirstName *string
	LastName  *string
	Username  *string
	FullName  *string
	Bio       *string
	AvatarRef *string
	Interests []string

	IsNewUser            *bool
	IsPasswordSet        *bool
	OnboardingComplete   *bool
	ProfileSetupComplete *bool
}

// IdentityClient performs identity calls against the remote service. Calls
// fail with domain.ErrUnreachable on transport trouble or a
// domain.RejectedError when the service refused the request. The client never
// touches the CredentialStore; applying results is the reconciler's job.
type IdentityClient interface {
	Signup(ctx context.Context, input SignupInput) (*RemoteUser, error)
	Login(ctx context.Context, email, secret string) (*RemoteUser, error)
	SetSecret(ctx context.Context, email, newSecret string) (*RemoteUser, error)
	Update(ctx context.Context, email string, patch ProfilePatch) (*RemoteUser, error)
}
