package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Reason is
// a stable machine-readable code; clients branch on it, never on the message.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "reason": "<code>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, reason := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg, Reason: reason})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), ""
	}

	// Known domain errors map to deterministic HTTP codes.
	var rej *domain.RejectedError
	switch {
	case errors.As(err, &rej):
		return http.StatusBadRequest, rej.Error(), rej.Reason
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email already registered", domain.ReasonDuplicateEmail
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username already taken", domain.ReasonDuplicateUsername
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error(), domain.ReasonDuplicate
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", domain.ReasonInvalidCredentials
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found", domain.ReasonNotFound
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found", domain.ReasonNotFound
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error", domain.ReasonInternal
}
