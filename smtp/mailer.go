package smtp

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/quantonganh/newsroom"
)

type mailer struct {
	dialer *gomail.Dialer
}

// NewMailer returns new SMTP mailer
func NewMailer(host string, port int, username, password string) newsroom.Mailer {
	return &mailer{
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// Send dials the relay and delivers one message. ctx is checked before dialing only.
func (m *mailer) Send(ctx context.Context, email *newsroom.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(newMessage(email)); err != nil {
		return errors.Errorf("failed to send mail to %s: %v", email.To, err)
	}

	return nil
}

func newMessage(email *newsroom.Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", email.From)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	if email.Text != "" {
		msg.SetBody("text/plain", email.Text)
		msg.AddAlternative("text/html", email.HTML)
	} else {
		msg.SetBody("text/html", email.HTML)
	}

	return msg
}
