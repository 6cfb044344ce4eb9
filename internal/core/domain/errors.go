package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the core and its adapters. Adapters translate
// transport-specific failures into these before anything crosses a port.
var (
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnreachable        = errors.New("remote service unreachable")
	ErrBusy               = errors.New("another operation is in flight")
)

// Field-specific conflicts wrap ErrConflict so callers can branch with
// errors.Is while the UI still gets a distinct reason per field.
var (
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrConflict)
)

var (
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: no active session", ErrNotFound)
)

// RejectedError is a remote validation failure. It never triggers the local
// fallback path: a rejection must not silently succeed.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "rejected: " + e.Reason
}

// Rejected builds a RejectedError with the given stable reason code.
func Rejected(reason string) error {
	return &RejectedError{Reason: reason}
}

// Stable reason codes surfaced alongside every error so the UI can render a
// field-specific message.
const (
	ReasonDuplicateEmail     = "duplicate_email"
	ReasonDuplicateUsername  = "duplicate_username"
	ReasonDuplicate          = "duplicate"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonNotFound           = "not_found"
	ReasonBusy               = "busy"
	ReasonUnreachable        = "unreachable"
	ReasonIllegalStage       = "illegal_stage"
	ReasonInternal           = "internal"
)

// ReasonCode maps an error to its stable reason code.
func ReasonCode(err error) string {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	switch {
	case errors.Is(err, ErrEmailTaken):
		return ReasonDuplicateEmail
	case errors.Is(err, ErrUsernameTaken):
		return ReasonDuplicateUsername
	case errors.Is(err, ErrConflict):
		return ReasonDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return ReasonInvalidCredentials
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrBusy):
		return ReasonBusy
	case errors.Is(err, ErrUnreachable):
		return ReasonUnreachable
	default:
		return ReasonInternal
	}
}
