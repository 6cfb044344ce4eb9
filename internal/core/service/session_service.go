package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

// SessionService owns the single active session and drives the
// signup → set-password → onboarding → profile-setup pipeline. It is the only
// writer: while a mutating call is in flight the machine sits in its
// authenticating state and rejects overlapping mutations with ErrBusy instead
// of racing two writes. Reads never block.
type SessionService struct {
	store  ports.CredentialStore
	client ports.IdentityClient
	rec    *Reconciler
	policy domain.CredentialPolicy
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight bool
}

func NewSessionService(store ports.CredentialStore, client ports.IdentityClient, policy domain.CredentialPolicy, logger zerolog.Logger) *SessionService {
	if policy == "" {
		policy = domain.PolicyPasswordRequired
	}
	return &SessionService{
		store:  store,
		client: client,
		rec:    NewReconciler(store, logger),
		policy: policy,
		logger: logger,
	}
}

// begin claims the single mutation slot or fails fast with ErrBusy.
func (s *SessionService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return domain.ErrBusy
	}
	s.inFlight = true
	return nil
}

func (s *SessionService) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Signup creates a new account and opens a session for it. The account is
// created locally even when the remote service is down; the record is then
// flagged for a later sync.
func (s *SessionService) Signup(ctx context.Context, input ports.SignupInput) (*domain.Session, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, domain.Rejected("invalid_email")
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	}
	input.Email = email

	remote, remoteErr := s.client.Signup(ctx, input)

	local := &domain.User{
		Email:     email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Flags:     domain.StageFlags{IsNewUser: true},
	}
	if input.Secret != "" {
		hash, err := hashSecret(input.Secret)
		if err != nil {
			return nil, err
		}
		local.SecretHash = hash
		local.Flags.IsPasswordSet = true
	}

	user, err := s.rec.Reconcile(ctx, local, remote, ports.ProfilePatch{}, remoteErr)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", user.Email).Bool("pending_sync", user.PendingSync).Msg("user signed up")
	return domain.NewSession(user, s.policy), nil
}

// Login authenticates against the remote service, falling back to the local
// cache when the service is unreachable and a verifiable credential is
// cached.
func (s *SessionService) Login(ctx context.Context, email, secret string) (*domain.Session, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	email = domain.NormalizeEmail(email)
	remote, remoteErr := s.client.Login(ctx, email, secret)

	switch {
	case remoteErr == nil:
		local, err := s.store.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if local == nil {
			local = &domain.User{Email: email}
		}
		// Cache the credential hash so a later outage still allows login.
		if secret != "" {
			hash, err := hashSecret(secret)
			if err != nil {
				return nil, err
			}
			local = local.Clone()
			local.SecretHash = hash
		}
		user, err := s.rec.Reconcile(ctx, local, remote, ports.ProfilePatch{}, nil)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetSession(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Str("email", user.Email).Msg("user logged in")
		return domain.NewSession(user, s.policy), nil

	case errors.Is(remoteErr, domain.ErrUnreachable):
		return s.offlineLogin(ctx, email, secret)

	default:
		return nil, remoteErr
	}
}

// offlineLogin verifies credentials against the local cache only. Without a
// cached record the caller has never completed signup here, so the outage
// surfaces as-is rather than being mistaken for bad credentials.
func (s *SessionService) offlineLogin(ctx context.Context, email, secret string) (*domain.Session, error) {
	local, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if s.policy.RequiresPassword() {
		if local.SecretHash == "" {
			return nil, domain.ErrUnreachable
		}
		if checkSecret(local.SecretHash, secret) != nil {
			return nil, domain.ErrInvalidCredentials
		}
	}
	if err := s.store.SetSession(ctx, local); err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", local.Email).Msg("user logged in from local cache")
	return domain.NewSession(local, s.policy), nil
}

// SetPassword sets the permanent credential. Only legal while the session is
// in the needs-password stage.
func (s *SessionService) SetPassword(ctx context.Context, secret string) (*domain.Session, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	cur, err := s.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if stage := domain.DeriveStage(cur.Flags, s.policy); stage != domain.StageNeedsPassword {
		return nil, domain.Rejected(domain.ReasonIllegalStage)
	}
	if secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	remote, remoteErr := s.client.SetSecret(ctx, cur.Email, secret)
	if err := s.ensureSameSession(ctx, cur.ID); err != nil {
		return nil, err
	}

	hash, err := hashSecret(secret)
	if err != nil {
		return nil, err
	}
	local := cur.Clone()
	local.SecretHash = hash

	passwordSet := true
	patch := ports.ProfilePatch{IsPasswordSet: &passwordSet}
	user, err := s.rec.Reconcile(ctx, local, remote, patch, remoteErr)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSession(ctx, user); err != nil {
		return nil, err
	}
	return domain.NewSession(user, s.policy), nil
}

// CompleteOnboarding records interests and marks the onboarding step done. An
// explicit skip with no interests is a legal terminal state, not an error,
// and a repeat call with the same interests is a no-op apart from updatedAt.
func (s *SessionService) CompleteOnboarding(ctx context.Context, interests []string, skip bool) (*domain.Session, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	cur, err := s.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if stage := domain.DeriveStage(cur.Flags, s.policy); stage.Before(domain.StageNeedsOnboarding) {
		return nil, domain.Rejected(domain.ReasonIllegalStage)
	}
	if !skip && len(interests) == 0 {
		return nil, domain.Rejected("interests_required")
	}

	// Merge into the cached set first so the remote receives the union and
	// duplicates never accumulate.
	merged := cur.Clone()
	merged.AddInterests(interests)

	complete := true
	patch := ports.ProfilePatch{
		Interests:          merged.Profile.Interests,
		OnboardingComplete: &complete,
	}
	if patch.Interests == nil {
		patch.Interests = []string{}
	}

	remote, remoteErr := s.client.Update(ctx, cur.Email, patch)
	if err := s.ensureSameSession(ctx, cur.ID); err != nil {
		return nil, err
	}

	user, err := s.rec.Reconcile(ctx, cur, remote, patch, remoteErr)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSession(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", user.Email).Int("interests", len(user.Profile.Interests)).Bool("skipped", skip).Msg("onboarding complete")
	return domain.NewSession(user, s.policy), nil
}

// CompleteProfileSetup assigns the unique username and the public profile
// fields, and graduates the account out of the new-user state.
func (s *SessionService) CompleteProfileSetup(ctx context.Context, input ports.ProfileSetupInput) (*domain.Session, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	cur, err := s.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if stage := domain.DeriveStage(cur.Flags, s.policy); stage.Before(domain.StageNeedsProfileSetup) {
		return nil, domain.Rejected(domain.ReasonIllegalStage)
	}
	if input.Username == "" {
		return nil, domain.Rejected("username_required")
	}

	complete := true
	notNew := false
	patch := ports.ProfilePatch{
		Username:             &input.Username,
		ProfileSetupComplete: &complete,
		IsNewUser:            &notNew,
	}
	if input.FullName != "" {
		patch.FullName = &input.FullName
	}
	if input.Bio != "" {
		patch.Bio = &input.Bio
	}
	if input.AvatarRef != "" {
		patch.AvatarRef = &input.AvatarRef
	}

	remote, remoteErr := s.client.Update(ctx, cur.Email, patch)
	if err := s.ensureSameSession(ctx, cur.ID); err != nil {
		return nil, err
	}

	user, err := s.rec.Reconcile(ctx, cur, remote, patch, remoteErr)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSession(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", user.Email).Str("username", user.Profile.Username).Msg("profile setup complete")
	return domain.NewSession(user, s.policy), nil
}

// Logout clears the session pointer only; the user record stays cached.
// Logout deliberately bypasses the busy gate so it can supersede a pending
// remote call; that call's result is then discarded by ensureSameSession.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.store.ClearSession(ctx)
}

// Current returns the active session with a freshly derived stage.
func (s *SessionService) Current(ctx context.Context) (*domain.Session, error) {
	user, err := s.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewSession(user, s.policy), nil
}

// ensureSameSession discards a completed remote call whose session has
// changed identity while it was pending. Comparison is by user id.
func (s *SessionService) ensureSameSession(ctx context.Context, id string) error {
	cur, err := s.store.CurrentSession(ctx)
	if err != nil || cur.ID != id {
		s.logger.Warn().Str("user_id", id).Msg("session changed while call was pending, result discarded")
		return domain.ErrSessionNotFound
	}
	return nil
}
