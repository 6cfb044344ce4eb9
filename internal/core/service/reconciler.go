package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

// Reconciler produces the one canonical user record from a remote call
// outcome and the locally cached record, then persists it. The precedence is
// asymmetric on purpose: the remote side wins field-by-field when it
// answered, the local side wins outright when it was unreachable. That keeps
// the onboarding flow moving during an outage at the cost of temporary
// divergence from the backend.
type Reconciler struct {
	store  ports.CredentialStore
	logger zerolog.Logger
}

func NewReconciler(store ports.CredentialStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile merges and persists one mutation.
//
//   - local is the cached record the operation starts from; nil means the
//     email is not cached yet (fresh signup).
//   - patch is the field update the operation intends.
//   - remote / remoteErr is the outcome of the remote call. A nil remoteErr
//     makes remote authoritative for every field it returned; ErrUnreachable
//     falls back to a local-only write; any other error aborts with no local
//     mutation.
func (r *Reconciler) Reconcile(ctx context.Context, local *domain.User, remote *ports.RemoteUser, patch ports.ProfilePatch, remoteErr error) (*domain.User, error) {
	if remoteErr != nil && !errors.Is(remoteErr, domain.ErrUnreachable) {
		return nil, remoteErr
	}

	merged := local.Clone()
	if merged == nil {
		merged = &domain.User{}
	}
	patch.Apply(merged)

	switch {
	case remoteErr == nil:
		overlayRemote(merged, remote)
		merged.PendingSync = false
	default:
		// Degraded mode: the backend is down but the flow is not.
		merged.PendingSync = true
		r.logger.Warn().
			Str("email", merged.Email).
			Msg("remote unreachable, applying local-only mutation")
	}

	merged.Email = domain.NormalizeEmail(merged.Email)
	if merged.Email == "" {
		return nil, domain.Rejected("invalid_email")
	}

	if err := r.checkUsernameUnique(ctx, merged); err != nil {
		return nil, err
	}

	if err := r.persist(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// checkUsernameUnique re-validates the username invariant after the merge.
// The record being updated is excluded, so renaming a user to their own
// username stays legal.
func (r *Reconciler) checkUsernameUnique(ctx context.Context, u *domain.User) error {
	if u.Profile.Username == "" {
		return nil
	}
	existing, err := r.store.FindByUsername(ctx, u.Profile.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != u.ID {
		return domain.Rejected(domain.ReasonDuplicate)
	}
	return nil
}

func (r *Reconciler) persist(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.UpdatedAt = now

	existing, err := r.store.FindByEmail(ctx, u.Email)
	switch {
	case err == nil:
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		return r.store.Replace(ctx, u)
	case errors.Is(err, domain.ErrNotFound):
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		return r.store.Insert(ctx, u)
	default:
		return err
	}
}

// overlayRemote lets the remote record win every field it actually returned.
// Omitted fields keep the local value; the remote API frequently answers with
// partial records, so a nil there is absence, not erasure.
func overlayRemote(u *domain.User, remote *ports.RemoteUser) {
	if remote == nil {
		return
	}
	if remote.ID != nil && *remote.ID != "" {
		u.ID = *remote.ID
	}
	if remote.Email != nil && *remote.Email != "" {
		u.Email = *remote.Email
	}
	if remote.FirstName != nil {
		u.FirstName = *remote.FirstName
	}
	if remote.LastName != nil {
		u.LastName = *remote.LastName
	}
	if remote.Username != nil {
		u.Profile.Username = *remote.Username
	}
	if remote.FullName != nil {
		u.Profile.FullName = *remote.FullName
	}
	if remote.Bio != nil {
		u.Profile.Bio = *remote.Bio
	}
	if remote.AvatarRef != nil {
		u.Profile.AvatarRef = *remote.AvatarRef
	}
	if remote.Interests != nil {
		u.Profile.Interests = append([]string(nil), remote.Interests...)
	}
	if remote.IsNewUser != nil {
		u.Flags.IsNewUser = *remote.IsNewUser
	}
	if remote.IsPasswordSet != nil {
		u.Flags.IsPasswordSet = *remote.IsPasswordSet
	}
	if remote.OnboardingComplete != nil {
		u.Flags.OnboardingComplete = *remote.OnboardingComplete
	}
	if remote.ProfileSetupComplete != nil {
		u.Flags.ProfileSetupComplete = *remote.ProfileSetupComplete
	}
}
