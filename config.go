package newsroom

import (
	"errors"
	"strings"
)

// Mail providers
const (
	ProviderResend = "resend"
	ProviderSMTP   = "smtp"
	ProviderLog    = "log"
)

// Config represents the main config
type Config struct {
	DB struct {
		Type string // "sqlite", "bolt", "postgres"
		Path string
		URL  string
	}

	HTTP struct {
		Addr string
	}

	Mailer struct {
		Provider string
	}

	Resend struct {
		APIKey string
	}

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
	}

	Newsletter struct {
		From     string
		Sanitize bool
		Product  struct {
			Name string
			Link string
		}
		Welcome struct {
			Enabled bool
			Subject string
		}
		Webhook struct {
			Secret string
			Header string
		}
	}

	Sentry struct {
		DSN string
	}

	AMQP struct {
		URL   string
		Queue string
	}
}

// Validate reports missing secrets and settings the service cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Newsletter.Webhook.Secret) == "" {
		return errors.New("newsletter.webhook.secret is required")
	}
	if strings.TrimSpace(c.Newsletter.From) == "" {
		return errors.New("newsletter.from is required")
	}

	switch c.Mailer.Provider {
	case ProviderResend:
		if strings.TrimSpace(c.Resend.APIKey) == "" {
			return errors.New("resend.apikey is required when mailer.provider is resend")
		}
	case ProviderSMTP:
		if c.SMTP.Host == "" {
			return errors.New("smtp.host is required when mailer.provider is smtp")
		}
	case ProviderLog:
	default:
		return errors.New("unknown mailer.provider: " + c.Mailer.Provider)
	}

	return nil
}
