package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/konekta/identity/internal/api/metrics"
	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
)

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

type signupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty"`
}

type setPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// updateRequest uses pointers throughout so the handler can tell an omitted
// field from an explicitly empty one. An explicit empty interests list clears
// the profile's interests.
type updateRequest struct {
	Username             *string   `json:"username"`
	FullName             *string   `json:"fullName"`
	Bio                  *string   `json:"bio"`
	AvatarRef            *string   `json:"avatarRef"`
	Interests            *[]string `json:"interests"`
	IsPasswordSet        *bool     `json:"isPasswordSet"`
	OnboardingComplete   *bool     `json:"onboardingComplete"`
	ProfileSetupComplete *bool     `json:"profileSetupComplete"`
	IsNewUser            *bool     `json:"isNewUser"`
}

// userResponse is the flat wire projection of a user record. The credential
// hash never appears here.
type userResponse struct {
	ID                   string   `json:"id"`
	Email                string   `json:"email"`
	FirstName            string   `json:"firstName,omitempty"`
	LastName             string   `json:"lastName,omitempty"`
	Username             string   `json:"username,omitempty"`
	FullName             string   `json:"fullName,omitempty"`
	Bio                  string   `json:"bio,omitempty"`
	AvatarRef            string   `json:"avatarRef,omitempty"`
	Interests            []string `json:"interests,omitempty"`
	IsNewUser            bool     `json:"isNewUser"`
	IsPasswordSet        bool     `json:"isPasswordSet"`
	OnboardingComplete   bool     `json:"onboardingComplete"`
	ProfileSetupComplete bool     `json:"profileSetupComplete"`
}

type authResponse struct {
	Message string        `json:"message,omitempty"`
	Token   string        `json:"token,omitempty"`
	User    *userResponse `json:"user,omitempty"`
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:                   u.ID,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Username:             u.Profile.Username,
		FullName:             u.Profile.FullName,
		Bio:                  u.Profile.Bio,
		AvatarRef:            u.Profile.AvatarRef,
		Interests:            u.Profile.Interests,
		IsNewUser:            u.Flags.IsNewUser,
		IsPasswordSet:        u.Flags.IsPasswordSet,
		OnboardingComplete:   u.Flags.OnboardingComplete,
		ProfileSetupComplete: u.Flags.ProfileSetupComplete,
	}
}

// Signup creates a new account. When no password is supplied the server
// generates a temporary credential and delivers it out of band; the response
// never contains it.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.identity.Register(c.Request().Context(), ports.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Secret:    req.Password,
	})
	if err != nil {
		return err
	}

	metrics.SignupsTotal.WithLabelValues(signupMode(req.Password)).Inc()
	if res.TempSecret != "" {
		metrics.TempCredentialsIssuedTotal.Inc()
	}
	return c.JSON(http.StatusCreated, authResponse{
		Message: "account created",
		Token:   res.Token,
		User:    toUserResponse(res.User),
	})
}

func signupMode(password string) string {
	if password == "" {
		return "temp_credential"
	}
	return "password"
}

// Login authenticates an account and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// SetPassword replaces the account's credential. Temporary credentials are
// retired here. Callers can only change their own password.
//
// @Summary      Set a permanent password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      setPasswordRequest  true  "New credential"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/set-password [post]
func (h *AuthHandler) SetPassword(c echo.Context) error {
	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := requireSelf(c, req.Email); err != nil {
		return err
	}

	user, err := h.identity.SetPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		Message: "password updated",
		User:    toUserResponse(user),
	})
}

// GetUser returns the account record. Callers can only read their own.
//
// @Summary      Fetch an account
// @Tags         users
// @Produce      json
// @Param        email  path      string  true  "Account email"
// @Success      200    {object}  authResponse
// @Failure      403    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /auth/users/{email} [get]
func (h *AuthHandler) GetUser(c echo.Context) error {
	email := c.Param("email")
	if err := requireSelf(c, email); err != nil {
		return err
	}

	user, err := h.identity.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{User: toUserResponse(user)})
}

// UpdateUser applies a partial profile update. Only the fields present in the
// body change; callers can only mutate their own account.
//
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        email  path      string         true  "Account email"
// @Param        body   body      updateRequest  true  "Fields to change"
// @Success      200    {object}  authResponse
// @Failure      400    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Router       /auth/users/{email} [put]
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	email := c.Param("email")
	if err := requireSelf(c, email); err != nil {
		return err
	}

	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	patch := ports.ProfilePatch{
		Username:             req.Username,
		FullName:             req.FullName,
		Bio:                  req.Bio,
		AvatarRef:            req.AvatarRef,
		IsPasswordSet:        req.IsPasswordSet,
		OnboardingComplete:   req.OnboardingComplete,
		ProfileSetupComplete: req.ProfileSetupComplete,
		IsNewUser:            req.IsNewUser,
	}
	if req.Interests != nil {
		patch.Interests = *req.Interests
		if patch.Interests == nil {
			patch.Interests = []string{}
		}
	}

	user, err := h.identity.UpdateProfile(c.Request().Context(), email, patch)
	if err != nil {
		return err
	}

	metrics.ProfileUpdatesTotal.Inc()
	return c.JSON(http.StatusOK, authResponse{User: toUserResponse(user)})
}
