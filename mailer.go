package newsroom

import "context"

// Email is a prepared message ready for a Mailer
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a single email through a provider
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}
