package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

type stubClient struct {
	signupFn    func(ctx context.Context, input ports.SignupInput) (*ports.RemoteUser, error)
	loginFn     func(ctx context.Context, email, secret string) (*ports.RemoteUser, error)
	setSecretFn func(ctx context.Context, email, newSecret string) (*ports.RemoteUser, error)
	updateFn    func(ctx context.Context, email string, patch ports.ProfilePatch) (*ports.RemoteUser, error)
}

func (c *stubClient) Signup(ctx context.Context, input ports.SignupInput) (*ports.RemoteUser, error) {
	return c.signupFn(ctx, input)
}

func (c *stubClient) Login(ctx context.Context, email, secret string) (*ports.RemoteUser, error) {
	return c.loginFn(ctx, email, secret)
}

func (c *stubClient) SetSecret(ctx context.Context, email, newSecret string) (*ports.RemoteUser, error) {
	return c.setSecretFn(ctx, email, newSecret)
}

func (c *stubClient) Update(ctx context.Context, email string, patch ports.ProfilePatch) (*ports.RemoteUser, error) {
	return c.updateFn(ctx, email, patch)
}

// offlineClient simulates a remote service that is down for every call.
func offlineClient() *stubClient {
	return &stubClient{
		signupFn: func(context.Context, ports.SignupInput) (*ports.RemoteUser, error) {
			return nil, domain.ErrUnreachable
		},
		loginFn: func(context.Context, string, string) (*ports.RemoteUser, error) {
			return nil, domain.ErrUnreachable
		},
		setSecretFn: func(context.Context, string, string) (*ports.RemoteUser, error) {
			return nil, domain.ErrUnreachable
		},
		updateFn: func(context.Context, string, ports.ProfilePatch) (*ports.RemoteUser, error) {
			return nil, domain.ErrUnreachable
		},
	}
}

func newTestService(store ports.CredentialStore, client ports.IdentityClient, policy domain.CredentialPolicy) *SessionService {
	return NewSessionService(store, client, policy, zerolog.Nop())
}

func TestSessionService_StageMonotonicity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyPasswordRequired)

	sess, err := svc.Signup(ctx, ports.SignupInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	stages := []domain.Stage{sess.Stage}

	if sess, err = svc.SetPassword(ctx, "s3cret"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	stages = append(stages, sess.Stage)

	if sess, err = svc.CompleteOnboarding(ctx, []string{"music", "golang"}, false); err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	stages = append(stages, sess.Stage)

	if sess, err = svc.CompleteProfileSetup(ctx, ports.ProfileSetupInput{Username: "ada", FullName: "Ada Lovelace"}); err != nil {
		t.Fatalf("complete profile setup: %v", err)
	}
	stages = append(stages, sess.Stage)

	want := []domain.Stage{
		domain.StageNeedsPassword,
		domain.StageNeedsOnboarding,
		domain.StageNeedsProfileSetup,
		domain.StageComplete,
	}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("stage progression: got %v, want %v", stages, want)
	}
	for i := 1; i < len(stages); i++ {
		if !stages[i-1].Before(stages[i]) {
			t.Fatalf("stage regressed: %v -> %v", stages[i-1], stages[i])
		}
	}
	if sess.User.Flags.IsNewUser {
		t.Fatalf("profile setup must graduate the new-user flag")
	}
}

func TestSessionService_SignupNormalizedDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyPasswordRequired)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "A@B.com"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for case-variant duplicate email, got %v", err)
	}
}

func TestSessionService_LoginScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, offlineClient(), domain.PolicyPasswordRequired)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com", Secret: "correctSecret"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.Login(ctx, "a@b.com", "wrongSecret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	sess, err := svc.Login(ctx, "a@b.com", "correctSecret")
	if err != nil {
		t.Fatalf("login with correct secret: %v", err)
	}
	if sess.Stage != domain.StageNeedsOnboarding {
		t.Fatalf("password already set at signup, expected needs_onboarding, got %v", sess.Stage)
	}
}

func TestSessionService_LoginUnknownEmail(t *testing.T) {
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyPasswordRequired)

	_, err := svc.Login(context.Background(), "ghost@b.com", "pass")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("signup never completed, expected not found, got %v", err)
	}
}

func TestSessionService_OnboardingIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, offlineClient(), domain.PolicyEmailOnly)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	first, err := svc.CompleteOnboarding(ctx, []string{"music", "art"}, false)
	if err != nil {
		t.Fatalf("first onboarding: %v", err)
	}
	second, err := svc.CompleteOnboarding(ctx, []string{"music", "art"}, false)
	if err != nil {
		t.Fatalf("repeat onboarding must stay legal: %v", err)
	}

	if !reflect.DeepEqual(first.User.Profile.Interests, second.User.Profile.Interests) {
		t.Fatalf("interests changed on repeat: %v vs %v", first.User.Profile.Interests, second.User.Profile.Interests)
	}
	if len(second.User.Profile.Interests) != 2 {
		t.Fatalf("duplicate interest entries accumulated: %v", second.User.Profile.Interests)
	}
	if first.User.Flags != second.User.Flags {
		t.Fatalf("flags changed on repeat: %+v vs %+v", first.User.Flags, second.User.Flags)
	}
	if second.User.UpdatedAt.Before(first.User.UpdatedAt) {
		t.Fatalf("updatedAt went backwards")
	}
}

func TestSessionService_SkipOnboarding(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyEmailOnly)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	sess, err := svc.CompleteOnboarding(ctx, nil, true)
	if err != nil {
		t.Fatalf("skip must be legal: %v", err)
	}
	if !sess.User.Flags.OnboardingComplete {
		t.Fatalf("skip must still mark onboarding complete")
	}
	if sess.Stage != domain.StageNeedsProfileSetup {
		t.Fatalf("expected needs_profile_setup after skip, got %v", sess.Stage)
	}
}

func TestSessionService_OnboardingRequiresInterestsUnlessSkipped(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyEmailOnly)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err := svc.CompleteOnboarding(ctx, nil, false)
	var rej *domain.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("empty interests without skip must be rejected, got %v", err)
	}
}

func TestSessionService_SetPasswordIllegalStage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyPasswordRequired)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com", Secret: "pw"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err := svc.SetPassword(ctx, "other")
	var rej *domain.RejectedError
	if !errors.As(err, &rej) || rej.Reason != domain.ReasonIllegalStage {
		t.Fatalf("expected illegal stage rejection, got %v", err)
	}
}

func TestSessionService_LogoutDiscardsPendingResult(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	client := offlineClient()
	svc := newTestService(store, client, domain.PolicyEmailOnly)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	// The session is logged out while the remote call is in flight; its
	// result must be discarded when it completes.
	client.updateFn = func(ctx context.Context, email string, patch ports.ProfilePatch) (*ports.RemoteUser, error) {
		if err := svc.Logout(ctx); err != nil {
			t.Fatalf("logout during pending call: %v", err)
		}
		done := true
		return &ports.RemoteUser{OnboardingComplete: &done}, nil
	}

	_, err := svc.CompleteOnboarding(ctx, []string{"music"}, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("superseded call must be discarded, got %v", err)
	}

	stored, err := store.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Flags.OnboardingComplete {
		t.Fatalf("discarded result still mutated the record")
	}
}

func TestSessionService_BusyDuringPendingMutation(t *testing.T) {
	ctx := context.Background()
	client := offlineClient()
	svc := newTestService(newMemStore(), client, domain.PolicyEmailOnly)

	if _, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	client.updateFn = func(context.Context, string, ports.ProfilePatch) (*ports.RemoteUser, error) {
		close(entered)
		<-release
		return nil, domain.ErrUnreachable
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.CompleteOnboarding(ctx, []string{"music"}, false)
		errCh <- err
	}()

	<-entered
	if _, err := svc.CompleteOnboarding(ctx, []string{"art"}, false); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("overlapping mutation must fail busy, got %v", err)
	}
	// Reads never block while a mutation is pending.
	if _, err := svc.Current(ctx); err != nil {
		t.Fatalf("read during pending mutation: %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first mutation: %v", err)
	}
}

func TestSessionService_EmailOnlyPolicySkipsPasswordStage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyEmailOnly)

	sess, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess.Stage != domain.StageNeedsOnboarding {
		t.Fatalf("email-only policy must skip the password stage, got %v", sess.Stage)
	}
}

func TestSessionService_RemoteRejectionLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	client := offlineClient()
	client.signupFn = func(context.Context, ports.SignupInput) (*ports.RemoteUser, error) {
		return nil, domain.Rejected("blocked_domain")
	}
	svc := newTestService(store, client, domain.PolicyEmailOnly)

	_, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	var rej *domain.RejectedError
	if !errors.As(err, &rej) || rej.Reason != "blocked_domain" {
		t.Fatalf("expected rejection to surface, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "a@b.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rejected signup must not create a local record")
	}
}

func TestSessionService_SecretNeverLeaves(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), offlineClient(), domain.PolicyPasswordRequired)

	sess, err := svc.Signup(ctx, ports.SignupInput{FirstName: "A", LastName: "B", Email: "a@b.com", Secret: "pw"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess.User.SecretHash != "" {
		t.Fatalf("credential secret leaked through the session projection")
	}

	cur, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.User.SecretHash != "" {
		t.Fatalf("credential secret leaked through Current")
	}
}
