package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/ports"
)

// LogNotifier writes notifications to the application log instead of an
// outbound channel. It stands in for a mail provider in development and test
// environments.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendTempCredential(_ context.Context, msg ports.TempCredentialNotification) error {
	n.logger.Info().
		Str("email", msg.Email).
		Str("name", msg.Name).
		Str("temp_secret", msg.TempSecret).
		Msg("temporary credential issued")
	return nil
}

func (n *LogNotifier) SendWelcome(_ context.Context, email, name string) error {
	n.logger.Info().
		Str("email", email).
		Str("name", name).
		Msg("welcome notification")
	return nil
}
