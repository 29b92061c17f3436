package newsroom

import (
	"context"
	"encoding/json"
)

// NewsletterService is the interface that wraps methods related to sending emails
type NewsletterService interface {
	SendNewsletter(ctx context.Context, subscribers []Subscriber, subject, html string) *DispatchReport
	SendWelcomeEmail(ctx context.Context, s *Subscriber) error
}

// SignatureVerifier checks that a raw webhook body was signed by the CMS
type SignatureVerifier interface {
	Verify(body []byte, signature string) bool
}

// Payload is the body of a newsletter webhook sent by the CMS
type Payload struct {
	ID      string  `json:"_id"`
	Subject string  `json:"subject"`
	Content []Block `json:"content"`
	Title   string  `json:"title"`
	Status  string  `json:"status"`
}

// Block is a rich-text block emitted by the CMS editor
type Block struct {
	Type     string `json:"_type,omitempty"`
	Key      string `json:"_key,omitempty"`
	Style    string `json:"style,omitempty"`
	Children []Span `json:"children,omitempty"`
}

// Span is a text leaf of a Block
type Span struct {
	Type  string   `json:"_type,omitempty"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// ParsePayload decodes a verified webhook body. Subject, content and status
// are required; an empty content array counts as present.
func ParsePayload(body []byte) (*Payload, error) {
	const op = "newsroom.ParsePayload"

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, WrapError(ErrInvalid, op, "Invalid payload", err)
	}

	switch {
	case p.Subject == "":
		return nil, Errorf(ErrInvalid, op, "Invalid payload: subject is required")
	case p.Content == nil:
		return nil, Errorf(ErrInvalid, op, "Invalid payload: content is required")
	case p.Status == "":
		return nil, Errorf(ErrInvalid, op, "Invalid payload: status is required")
	}

	return &p, nil
}

// DispatchReport summarises one pass of the send loop
type DispatchReport struct {
	ID        string
	Attempted int
	Sent      int
	Failures  []DeliveryFailure
}

// DeliveryFailure records a subscriber the provider did not accept
type DeliveryFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// Empty reports whether the send loop had no subscribers to reach
func (r *DispatchReport) Empty() bool {
	return r.Attempted == 0
}

// OK reports whether every attempted send was accepted
func (r *DispatchReport) OK() bool {
	return len(r.Failures) == 0
}

type NewsletterResponse struct {
	Success  bool              `json:"success"`
	Sent     int               `json:"sent"`
	Failed   int               `json:"failed,omitempty"`
	Failures []DeliveryFailure `json:"failures,omitempty"`
}
