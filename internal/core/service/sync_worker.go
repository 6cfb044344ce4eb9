package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

const defaultSyncInterval = 30 * time.Second

// SyncWorker pushes records mutated in degraded mode back to the remote
// service once connectivity returns. One flush handles every pending record;
// the first unreachable response aborts the pass since the rest would fail
// the same way.
type SyncWorker struct {
	store    ports.CredentialStore
	client   ports.IdentityClient
	rec      *Reconciler
	interval time.Duration
	logger   zerolog.Logger
}

func NewSyncWorker(store ports.CredentialStore, client ports.IdentityClient, interval time.Duration, logger zerolog.Logger) *SyncWorker {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &SyncWorker{
		store:    store,
		client:   client,
		rec:      NewReconciler(store, logger),
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background flush loop. It stops when ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Flush(ctx)
			}
		}
	}()
}

// Flush pushes every pending record once. Safe to call directly; the UI may
// trigger it on a connectivity-restored signal.
func (w *SyncWorker) Flush(ctx context.Context) {
	pending, err := w.store.ListPendingSync(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list pending records")
		return
	}

	for _, user := range pending {
		if err := w.syncOne(ctx, user); err != nil {
			if errors.Is(err, domain.ErrUnreachable) {
				w.logger.Debug().Msg("remote still unreachable, deferring sync")
				return
			}
			w.logger.Warn().Err(err).Str("email", user.Email).Msg("sync rejected, record left pending")
		}
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, user *domain.User) error {
	patch := patchFromUser(user)

	remote, err := w.client.Update(ctx, user.Email, patch)
	if needsSignup(err) {
		// The record was created locally during an outage, or the worker
		// holds no usable token (a restart discards it). Signing the record
		// up covers both: it creates the remote account if missing and
		// authenticates the client for the retry. A conflict means the
		// account exists but cannot be re-authenticated here; the next
		// interactive login refreshes the token, so leave the record pending.
		if _, serr := w.client.Signup(ctx, ports.SignupInput{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		}); serr != nil {
			if errors.Is(serr, domain.ErrConflict) {
				return err
			}
			return serr
		}
		remote, err = w.client.Update(ctx, user.Email, patch)
	}
	if err != nil {
		return err
	}

	synced, err := w.rec.Reconcile(ctx, user, remote, ports.ProfilePatch{}, nil)
	if err != nil {
		return err
	}
	w.logger.Info().Str("email", synced.Email).Msg("pending record synced")
	return nil
}

// needsSignup reports whether a failed update should be retried after a
// signup. Against a live server an unauthenticated PUT surfaces as invalid
// credentials rather than not-found, so both trigger the recovery path; only
// the full update carrying the local mutations may ever be reconciled.
func needsSignup(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidCredentials)
}

// patchFromUser converts a full record into the partial-update shape the
// remote PUT expects.
func patchFromUser(u *domain.User) ports.ProfilePatch {
	patch := ports.ProfilePatch{
		IsNewUser:            &u.Flags.IsNewUser,
		IsPasswordSet:        &u.Flags.IsPasswordSet,
		OnboardingComplete:   &u.Flags.OnboardingComplete,
		ProfileSetupComplete: &u.Flags.ProfileSetupComplete,
	}
	if u.Profile.Username != "" {
		patch.Username = &u.Profile.Username
	}
	if u.Profile.FullName != "" {
		patch.FullName = &u.Profile.FullName
	}
	if u.Profile.Bio != "" {
		patch.Bio = &u.Profile.Bio
	}
	if u.Profile.AvatarRef != "" {
		patch.AvatarRef = &u.Profile.AvatarRef
	}
	if u.Profile.Interests != nil {
		patch.Interests = append([]string(nil), u.Profile.Interests...)
	}
	return patch
}
