package newsletter

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/newsroom"
)

const defaultWelcomeSubject = "Thank you for subscribing"

type newsletterService struct {
	mailer newsroom.Mailer
	*newsroom.Config
}

// NewNewsletterService returns new newsletter service
func NewNewsletterService(config *newsroom.Config, mailer newsroom.Mailer) newsroom.NewsletterService {
	return &newsletterService{
		Config: config,
		mailer: mailer,
	}
}

// SendNewsletter sends one email per subscriber, in order, and keeps going
// past failures so the report says exactly who was not reached.
func (ns *newsletterService) SendNewsletter(ctx context.Context, subscribers []newsroom.Subscriber, subject, html string) *newsroom.DispatchReport {
	report := &newsroom.DispatchReport{
		ID: uuid.NewV4().String(),
	}

	logger := zerolog.Ctx(ctx).With().Str("dispatch_id", report.ID).Logger()
	for _, s := range subscribers {
		report.Attempted++

		err := ns.mailer.Send(ctx, &newsroom.Email{
			From:    ns.Config.Newsletter.From,
			To:      s.Email,
			Subject: subject,
			HTML:    html,
		})
		if err != nil {
			logger.Warn().Err(err).Str("email", s.Email).Msg("failed to send newsletter")
			sentry.CaptureException(err)
			report.Failures = append(report.Failures, newsroom.DeliveryFailure{
				Email: s.Email,
				Error: err.Error(),
			})
			continue
		}

		report.Sent++
	}

	logger.Info().
		Int("attempted", report.Attempted).
		Int("sent", report.Sent).
		Int("failed", len(report.Failures)).
		Msg("newsletter dispatched")

	return report
}

// SendWelcomeEmail sends a "thank you" email to a new subscriber
func (ns *newsletterService) SendWelcomeEmail(ctx context.Context, s *newsroom.Subscriber) error {
	if !ns.Config.Newsletter.Welcome.Enabled {
		return nil
	}

	h := hermes.Hermes{
		Product: hermes.Product{
			Name: ns.Config.Newsletter.Product.Name,
			Link: ns.Config.Newsletter.Product.Link,
		},
	}

	email := hermes.Email{
		Body: hermes.Body{
			Name: s.Name,
			Intros: []string{
				fmt.Sprintf("Thank you for subscribing to %s", ns.Config.Newsletter.Product.Name),
			},
			Outros: []string{
				"You will receive new issues in your inbox.",
			},
		},
	}

	html, err := h.GenerateHTML(email)
	if err != nil {
		return errors.Errorf("failed to generate HTML email: %v", err)
	}
	text, err := h.GeneratePlainText(email)
	if err != nil {
		return errors.Errorf("failed to generate plain text email: %v", err)
	}

	subject := ns.Config.Newsletter.Welcome.Subject
	if subject == "" {
		subject = defaultWelcomeSubject
	}

	return ns.mailer.Send(ctx, &newsroom.Email{
		From:    ns.Config.Newsletter.From,
		To:      s.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}
