package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/newsroom"
)

type SubscriberService struct {
	mock.Mock
}

func (m *SubscriberService) FindAll(ctx context.Context) ([]newsroom.Subscriber, error) {
	args := m.Called(ctx)
	subscribers, _ := args.Get(0).([]newsroom.Subscriber)
	return subscribers, args.Error(1)
}

func (m *SubscriberService) Insert(ctx context.Context, s *newsroom.Subscriber) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type NewsletterService struct {
	mock.Mock
}

func (m *NewsletterService) SendNewsletter(ctx context.Context, subscribers []newsroom.Subscriber, subject, html string) *newsroom.DispatchReport {
	args := m.Called(ctx, subscribers, subject, html)
	report, _ := args.Get(0).(*newsroom.DispatchReport)
	return report
}

func (m *NewsletterService) SendWelcomeEmail(ctx context.Context, s *newsroom.Subscriber) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(ctx context.Context, email *newsroom.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type QueueService struct {
	mock.Mock
}

func (m *QueueService) Consume(ctx context.Context, topic string) (<-chan newsroom.Message, error) {
	args := m.Called(ctx, topic)
	messages, _ := args.Get(0).(chan newsroom.Message)
	return messages, args.Error(1)
}

func (m *QueueService) Close() error {
	args := m.Called()
	return args.Error(0)
}
