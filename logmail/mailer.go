// Package logmail writes emails to the log instead of sending them.
// Useful for development.
package logmail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quantonganh/newsroom"
)

type mailer struct {
	logger zerolog.Logger
}

// NewMailer returns a mailer that logs every email at info level
func NewMailer(logger zerolog.Logger) newsroom.Mailer {
	return &mailer{
		logger: logger,
	}
}

func (m *mailer) Send(_ context.Context, email *newsroom.Email) error {
	m.logger.Info().
		Str("from", email.From).
		Str("to", email.To).
		Str("subject", email.Subject).
		Int("html_bytes", len(email.HTML)).
		Msg("EMAIL (dev mode - not actually sent)")
	return nil
}
