package newsroom

import "context"

// Message is a newsletter payload delivered through a queue, with the
// signature that accompanied it.
type Message struct {
	Body      []byte
	Signature string
}

type QueueService interface {
	Consume(ctx context.Context, topic string) (<-chan Message, error)
	Close() error
}
