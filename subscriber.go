package newsroom

import (
	"context"
	"time"
)

// SubscriberService is the interface that wraps methods related to subscriber storage
type SubscriberService interface {
	FindAll(ctx context.Context) ([]Subscriber, error)
	Insert(ctx context.Context, s *Subscriber) error
}

// Subscriber represents a newsletter recipient
type Subscriber struct {
	ID        int       `json:"id" storm:"id,increment"`
	Name      string    `json:"name"`
	Email     string    `json:"email" storm:"unique"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubscriber returns new subscriber
func NewSubscriber(name, email string) *Subscriber {
	return &Subscriber{
		Name:  name,
		Email: email,
	}
}

// MsgAlreadySubscribed is the conflict message stores return for a duplicate email
const MsgAlreadySubscribed = "Email already subscribed"

type SubscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
