package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

type stubIdentity struct {
	registerFn    func(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error)
	loginFn       func(ctx context.Context, email, secret string) (string, *domain.User, error)
	setPasswordFn func(ctx context.Context, email, newSecret string) (*domain.User, error)
	updateFn      func(ctx context.Context, email string, patch ports.ProfilePatch) (*domain.User, error)
	getFn         func(ctx context.Context, email string) (*domain.User, error)
}

func (s *stubIdentity) Register(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, input)
}

func (s *stubIdentity) Login(ctx context.Context, email, secret string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, secret)
}

func (s *stubIdentity) SetPassword(ctx context.Context, email, newSecret string) (*domain.User, error) {
	return s.setPasswordFn(ctx, email, newSecret)
}

func (s *stubIdentity) UpdateProfile(ctx context.Context, email string, patch ports.ProfilePatch) (*domain.User, error) {
	return s.updateFn(ctx, email, patch)
}

func (s *stubIdentity) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getFn(ctx, email)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	stub := &stubIdentity{
		registerFn: func(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error) {
			if input.FirstName != "Ada" || input.Email != "ada@example.com" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &ports.RegisterResult{
				User: &domain.User{
					ID:        "u1",
					Email:     "ada@example.com",
					FirstName: "Ada",
					Flags:     domain.StageFlags{IsNewUser: true},
				},
				Token:      "tok-signup",
				TempSecret: "KNK-0000000A",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/signup",
		`{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}`)
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["email"] != "ada@example.com" || user["isNewUser"] != true {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if resp["token"] != "tok-signup" {
		t.Fatalf("signup response must carry the session token: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "KNK-") {
		t.Fatalf("temporary credential leaked into the response body")
	}
}

func TestAuthHandler_Signup_ValidationFailure(t *testing.T) {
	stub := &stubIdentity{
		registerFn: func(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/signup", `{"firstName":"Ada"}`)
	err := h.Signup(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Signup_Duplicate(t *testing.T) {
	stub := &stubIdentity{
		registerFn: func(ctx context.Context, input ports.SignupInput) (*ports.RegisterResult, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/signup",
		`{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}`)
	err := h.Signup(c)
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected duplicate to surface for the error handler, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubIdentity{
		loginFn: func(ctx context.Context, email, secret string) (string, *domain.User, error) {
			if email != "ada@example.com" || secret != "secret99" {
				t.Fatalf("unexpected args: %s %s", email, secret)
			}
			return "token123", &domain.User{ID: "u1", Email: email}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"secret99"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("token missing: %+v", resp)
	}
}

func TestAuthHandler_Login_WrongSecret(t *testing.T) {
	stub := &stubIdentity{
		loginFn: func(ctx context.Context, email, secret string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"nope-nope"}`)
	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthHandler_SetPassword_SelfOnly(t *testing.T) {
	stub := &stubIdentity{
		setPasswordFn: func(ctx context.Context, email, newSecret string) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/set-password",
		`{"email":"ada@example.com","password":"longenough"}`)
	c.Set("email", "mallory@example.com")

	err := h.SetPassword(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestAuthHandler_SetPassword_Success(t *testing.T) {
	stub := &stubIdentity{
		setPasswordFn: func(ctx context.Context, email, newSecret string) (*domain.User, error) {
			return &domain.User{ID: "u1", Email: email, Flags: domain.StageFlags{IsPasswordSet: true}}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/set-password",
		`{"email":"ada@example.com","password":"longenough"}`)
	c.Set("email", "ada@example.com")

	if err := h.SetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"isPasswordSet":true`) {
		t.Fatalf("flag missing from response: %s", rec.Body.String())
	}
}

func TestAuthHandler_UpdateUser_PartialPatch(t *testing.T) {
	var got ports.ProfilePatch
	stub := &stubIdentity{
		updateFn: func(ctx context.Context, email string, patch ports.ProfilePatch) (*domain.User, error) {
			got = patch
			return &domain.User{ID: "u1", Email: email}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPut, "/auth/users/ada@example.com",
		`{"bio":"hello","interests":[]}`)
	c.SetParamNames("email")
	c.SetParamValues("ada@example.com")
	c.Set("email", "ada@example.com")

	if err := h.UpdateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got.Bio == nil || *got.Bio != "hello" {
		t.Fatalf("bio not carried: %+v", got)
	}
	if got.Username != nil {
		t.Fatalf("omitted field must stay nil")
	}
	if got.Interests == nil || len(got.Interests) != 0 {
		t.Fatalf("explicit empty interests must survive as [], got %v", got.Interests)
	}
}

func TestAuthHandler_GetUser_SelfOnly(t *testing.T) {
	stub := &stubIdentity{
		getFn: func(ctx context.Context, email string) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodGet, "/auth/users/ada@example.com", "")
	c.SetParamNames("email")
	c.SetParamValues("ada@example.com")
	c.Set("email", "mallory@example.com")

	err := h.GetUser(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
