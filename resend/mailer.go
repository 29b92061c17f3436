package resend

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/quantonganh/newsroom"
)

type mailer struct {
	client *resend.Client
}

// NewMailer returns new Resend mailer
func NewMailer(apiKey string) newsroom.Mailer {
	return &mailer{
		client: resend.NewClient(apiKey),
	}
}

// Send sends an email using the Resend API
func (m *mailer) Send(ctx context.Context, email *newsroom.Email) error {
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email to %s: %w", email.To, err)
	}

	return nil
}
