package rabbitmq

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/quantonganh/newsroom"
)

const (
	consumerTag   = "newsroom"
	prefetchCount = 1
)

// QueueService consumes newsletter webhooks relayed through RabbitMQ
type QueueService struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	signatureHeader string
}

var _ newsroom.QueueService = (*QueueService)(nil)

// NewQueueService dials the broker. Signatures are read from the AMQP
// header named signatureHeader.
func NewQueueService(url, signatureHeader string) (*QueueService, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	return &QueueService{
		conn:            conn,
		ch:              ch,
		signatureHeader: signatureHeader,
	}, nil
}

// Consume declares topic as a durable queue and delivers its messages one at
// a time. A message is acked once the consumer has taken it and requeued if
// ctx ends first.
func (s *QueueService) Consume(ctx context.Context, topic string) (<-chan newsroom.Message, error) {
	q, err := s.ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "declare queue %s", topic)
	}

	if err := s.ch.Qos(prefetchCount, 0, false); err != nil {
		return nil, errors.Wrap(err, "set qos")
	}

	deliveries, err := s.ch.Consume(q.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "consume %s", q.Name)
	}

	messages := make(chan newsroom.Message)
	logger := zerolog.Ctx(ctx).With().Str("queue", q.Name).Logger()
	go s.forward(ctx, logger, deliveries, messages)

	return messages, nil
}

// forward hands deliveries to messages until ctx ends or deliveries closes,
// then closes messages
func (s *QueueService) forward(ctx context.Context, logger zerolog.Logger, deliveries <-chan amqp.Delivery, messages chan<- newsroom.Message) {
	defer close(messages)

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn().Msg("deliveries channel closed")
				return
			}
			select {
			case messages <- toMessage(d, s.signatureHeader):
				if err := d.Ack(false); err != nil {
					logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("failed to ack message")
				}
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("failed to requeue message")
				}
				return
			}
		}
	}
}

// Close closes the channel and the connection
func (s *QueueService) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}

func toMessage(d amqp.Delivery, signatureHeader string) newsroom.Message {
	signature, _ := d.Headers[signatureHeader].(string)
	return newsroom.Message{
		Body:      d.Body,
		Signature: signature,
	}
}
