// Package newsletter fans a published newsletter out to every subscriber.
package newsletter

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/quantonganh/newsroom"
	"github.com/quantonganh/newsroom/richtext"
)

// Processor runs the webhook flow: verify, parse, read subscribers, render, send.
type Processor struct {
	Verifier          newsroom.SignatureVerifier
	SubscriberService newsroom.SubscriberService
	NewsletterService newsroom.NewsletterService
	Renderer          *richtext.Renderer
}

// NewProcessor returns new processor
func NewProcessor(verifier newsroom.SignatureVerifier, ss newsroom.SubscriberService, ns newsroom.NewsletterService, renderer *richtext.Renderer) *Processor {
	return &Processor{
		Verifier:          verifier,
		SubscriberService: ss,
		NewsletterService: ns,
		Renderer:          renderer,
	}
}

// Process handles one webhook delivery. body must be the bytes exactly as received.
func (p *Processor) Process(ctx context.Context, body []byte, signature string) (*newsroom.DispatchReport, error) {
	const op = "newsletter.Process"

	if !p.Verifier.Verify(body, signature) {
		return nil, newsroom.Errorf(newsroom.ErrUnauthorized, op, "Invalid signature")
	}

	payload, err := newsroom.ParsePayload(body)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("newsletter_id", payload.ID).
		Str("subject", payload.Subject).
		Str("status", payload.Status).
		Msg("received newsletter")

	subscribers, err := p.SubscriberService.FindAll(ctx)
	if err != nil {
		return nil, newsroom.WrapError(newsroom.ErrInternal, op, "", err)
	}

	if len(subscribers) == 0 {
		logger.Info().Msg("no subscribers to send")
		return &newsroom.DispatchReport{}, nil
	}

	html := p.Renderer.Render(payload.Content)

	return p.NewsletterService.SendNewsletter(ctx, subscribers, payload.Subject, html), nil
}

// Consume runs Process for every message from topic until ctx is done or the queue closes.
func (p *Processor) Consume(ctx context.Context, qs newsroom.QueueService, topic string) error {
	messages, err := qs.Consume(ctx, topic)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				logger.Warn().Str("topic", topic).Msg("queue closed, consumer stopped")
				return nil
			}

			report, err := p.Process(ctx, msg.Body, msg.Signature)
			if err != nil {
				code := newsroom.ErrorCode(err)
				logger.Error().Err(err).Str("code", code).Str("topic", topic).Msg("failed to process newsletter message")
				if code == newsroom.ErrInternal {
					sentry.CaptureException(err)
				}
				continue
			}

			logger.Info().
				Str("topic", topic).
				Int("sent", report.Sent).
				Int("failed", len(report.Failures)).
				Msg("processed newsletter message")
		}
	}
}
