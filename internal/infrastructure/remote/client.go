// Package remote implements the identity client against the HTTP+JSON
// contract of the remote identity service. It translates the wire shape into
// the canonical user projection and transport failures into domain errors;
// it never touches the credential store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	httpc   *http.Client
	logger  zerolog.Logger

	mu    sync.Mutex
	token string
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// wireUser is the user shape the service speaks. Pointer fields keep absent
// and empty distinguishable; the reconciler depends on that.
type wireUser struct {
	ID        *string  `json:"id"`
	Email     *string  `json:"email"`
	FirstName *string  `json:"firstName"`
	LastName  *string  `json:"lastName"`
	Username  *string  `json:"username"`
	FullName  *string  `json:"fullName"`
	Bio       *string  `json:"bio"`
	AvatarRef *string  `json:"avatarRef"`
	Interests []string `json:"interests"`

	IsNewUser            *bool `json:"isNewUser"`
	IsPasswordSet        *bool `json:"isPasswordSet"`
	OnboardingComplete   *bool `json:"onboardingComplete"`
	ProfileSetupComplete *bool `json:"profileSetupComplete"`
}

type envelope struct {
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Token   string    `json:"token,omitempty"`
	User    *wireUser `json:"user,omitempty"`
}

func (c *Client) Signup(ctx context.Context, input ports.SignupInput) (*ports.RemoteUser, error) {
	body := map[string]any{
		"firstName": input.FirstName,
		"lastName":  input.LastName,
		"email":     input.Email,
	}
	if input.Secret != "" {
		body["password"] = input.Secret
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/signup", body)
	if err != nil {
		return nil, err
	}
	c.setToken(env.Token)
	return toRemoteUser(env.User), nil
}

func (c *Client) Login(ctx context.Context, email, secret string) (*ports.RemoteUser, error) {
	body := map[string]any{"email": email}
	if secret != "" {
		body["password"] = secret
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	c.setToken(env.Token)
	return toRemoteUser(env.User), nil
}

func (c *Client) SetSecret(ctx context.Context, email, newSecret string) (*ports.RemoteUser, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/set-password", map[string]any{
		"email":    email,
		"password": newSecret,
	})
	if err != nil {
		return nil, err
	}
	return toRemoteUser(env.User), nil
}

func (c *Client) Update(ctx context.Context, email string, patch ports.ProfilePatch) (*ports.RemoteUser, error) {
	env, err := c.do(ctx, http.MethodPut, "/auth/users/"+url.PathEscape(email), patchBody(patch))
	if err != nil {
		return nil, err
	}
	return toRemoteUser(env.User), nil
}

// patchBody builds the request body by hand so that only supplied fields are
// sent; an explicitly empty interests list still goes over the wire as [].
func patchBody(patch ports.ProfilePatch) map[string]any {
	body := make(map[string]any)
	if patch.Username != nil {
		body["username"] = *patch.Username
	}
	if patch.FullName != nil {
		body["fullName"] = *patch.FullName
	}
	if patch.Bio != nil {
		body["bio"] = *patch.Bio
	}
	if patch.AvatarRef != nil {
		body["avatarRef"] = *patch.AvatarRef
	}
	if patch.Interests != nil {
		body["interests"] = patch.Interests
	}
	if patch.IsNewUser != nil {
		body["isNewUser"] = *patch.IsNewUser
	}
	if patch.IsPasswordSet != nil {
		body["isPasswordSet"] = *patch.IsPasswordSet
	}
	if patch.OnboardingComplete != nil {
		body["onboardingComplete"] = *patch.OnboardingComplete
	}
	if patch.ProfileSetupComplete != nil {
		body["profileSetupComplete"] = *patch.ProfileSetupComplete
	}
	return body
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.getToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("identity service unreachable")
		return nil, domain.ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return nil, domain.ErrUnreachable
		}
		return &env, nil
	}

	// Error responses classify by status even when the body is not the
	// envelope (empty body, proxy HTML page); a 4xx must never be mistaken
	// for an outage.
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		env = envelope{}
	}
	return nil, mapFailure(resp.StatusCode, &env)
}

// mapFailure translates an error response into the domain taxonomy. The
// reason code takes precedence; the status code backstops older servers that
// do not send one.
func mapFailure(status int, env *envelope) error {
	switch env.Reason {
	case domain.ReasonDuplicateEmail:
		return domain.ErrEmailTaken
	case domain.ReasonDuplicateUsername:
		return domain.ErrUsernameTaken
	case domain.ReasonInvalidCredentials:
		return domain.ErrInvalidCredentials
	case domain.ReasonNotFound:
		return domain.ErrUserNotFound
	}

	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrInvalidCredentials
	case status == http.StatusNotFound:
		return domain.ErrUserNotFound
	case status == http.StatusConflict:
		return domain.ErrEmailTaken
	case status >= 500:
		return domain.ErrUnreachable
	default:
		reason := env.Reason
		if reason == "" {
			reason = env.Error
		}
		if reason == "" {
			reason = fmt.Sprintf("http_%d", status)
		}
		return domain.Rejected(reason)
	}
}

func toRemoteUser(w *wireUser) *ports.RemoteUser {
	if w == nil {
		return nil
	}
	return &ports.RemoteUser{
		ID:                   w.ID,
		Email:                w.Email,
		FirstName:            w.FirstName,
		LastName:             w.LastName,
		Username:             w.Username,
		FullName:             w.FullName,
		Bio:                  w.Bio,
		AvatarRef:            w.AvatarRef,
		Interests:            w.Interests,
		IsNewUser:            w.IsNewUser,
		IsPasswordSet:        w.IsPasswordSet,
		OnboardingComplete:   w.OnboardingComplete,
		ProfileSetupComplete: w.ProfileSetupComplete,
	}
}

func (c *Client) setToken(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) getToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
