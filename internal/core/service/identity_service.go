package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

// IdentityService implements the server side of the identity contract:
// registration with temporary credentials, login with JWT issuance, permanent
// password assignment and partial profile updates.
type IdentityService struct {
	repo      ports.UserRepository
	tempCreds ports.TempCredentialStore
	notifier  ports.Notifier
	policy    domain.CredentialPolicy
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewIdentityService(repo ports.UserRepository, tempCreds ports.TempCredentialStore, notifier ports.Notifier, policy domain.CredentialPolicy, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if policy == "" {
		policy = domain.PolicyPasswordRequired
	}
	return &IdentityService{
		repo:      repo,
		tempCreds: tempCreds,
		notifier:  notifier,
		policy:    policy,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a new account. When no secret is supplied under the
// password policy, a temporary one is generated, stored hashed, and handed to
// the notifier for out-of-band delivery.
func (s *IdentityService) Register(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if input.FirstName == "" || input.LastName == "" || email == "" {
		return nil, domain.Rejected("missing_fields")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Flags:     domain.StageFlags{IsNewUser: true},
		CreatedAt: now,
		UpdatedAt: now,
	}

	tempSecret := ""
	switch {
	case input.Secret != "":
		hash, err := hashSecret(input.Secret)
		if err != nil {
			return nil, err
		}
		user.SecretHash = hash
		user.Flags.IsPasswordSet = true
	case s.policy.RequiresPassword():
		tempSecret = generateTempSecret()
		hash, err := hashSecret(tempSecret)
		if err != nil {
			return nil, err
		}
		user.SecretHash = hash
		if err := s.tempCreds.Mark(ctx, email); err != nil {
			s.logger.Warn().Err(err).Str("email", email).Msg("failed to track temporary credential")
		}
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	// Issue a token right away: the onboarding calls that follow signup hit
	// authenticated routes, and the account has no other way to a token
	// before its first login.
	token, err := s.generateToken(created)
	if err != nil {
		return nil, err
	}

	if tempSecret != "" {
		if err := s.notifier.SendTempCredential(ctx, ports.TempCredentialNotification{
			Email:      email,
			Name:       input.FirstName,
			TempSecret: tempSecret,
		}); err != nil {
			s.logger.Error().Err(err).Str("email", email).Msg("temporary credential delivery failed")
		}
	} else if err := s.notifier.SendWelcome(ctx, email, input.FirstName); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("welcome delivery failed")
	}

	s.logger.Info().Str("email", email).Bool("temp_credential", tempSecret != "").Msg("user registered")
	return &ports.RegisterResult{User: created, Token: token, TempSecret: tempSecret}, nil
}

// Login authenticates a user and issues a JWT whose subject is the account
// email. Under the email-only policy no secret is checked.
func (s *IdentityService) Login(ctx context.Context, email, secret string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if s.policy.RequiresPassword() {
		if secret == "" || checkSecret(user.SecretHash, secret) != nil {
			return "", nil, domain.ErrInvalidCredentials
		}
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SetPassword replaces the credential with a permanent one and retires any
// outstanding temporary credential.
func (s *IdentityService) SetPassword(ctx context.Context, email, newSecret string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if newSecret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := hashSecret(newSecret)
	if err != nil {
		return nil, err
	}
	user.SecretHash = hash
	user.Flags.IsPasswordSet = true
	user.UpdatedAt = time.Now().UTC()

	if err := s.tempCreds.Clear(ctx, email); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("failed to clear temporary credential")
	}
	return s.repo.Update(ctx, user)
}

// UpdateProfile applies a partial update, mirroring the PUT contract: only
// supplied fields change. A username change is checked for uniqueness with
// the record itself excluded, so self-renames stay legal.
func (s *IdentityService) UpdateProfile(ctx context.Context, email string, patch ports.ProfilePatch) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil && *patch.Username != "" {
		existing, err := s.repo.FindByUsername(ctx, *patch.Username)
		if err == nil && existing.ID != user.ID {
			return nil, domain.ErrUsernameTaken
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	patch.Apply(user)
	user.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", email).Msg("profile updated")
	return updated, nil
}

// GetByEmail returns the stored record for an email.
func (s *IdentityService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *IdentityService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.Email,
		"email": user.Email,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// generateTempSecret returns a random credential in the format KNK-XXXXXXXX.
func generateTempSecret() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("KNK-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("KNK-%08X", b)
}
