package ports

import "context"

// TempCredentialNotification carries everything a delivery channel needs to
// hand a freshly generated temporary credential to its owner.
type TempCredentialNotification struct {
	Email      string
	Name       string
	TempSecret string
}

// Notifier delivers out-of-band messages to users. Failures are logged, not
// surfaced: signup must not fail because the mail provider is down.
type Notifier interface {
	SendTempCredential(ctx context.Context, n TempCredentialNotification) error
	SendWelcome(ctx context.Context, email, name string) error
}
