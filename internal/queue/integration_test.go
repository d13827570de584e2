//go:build integration

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"news_digest/internal/domain"
)

type QueueIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *QueueIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *QueueIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestQueueIntegrationSuite(t *testing.T) {
	suite.Run(t, new(QueueIntegrationSuite))
}

func (s *QueueIntegrationSuite) newConfig(name string) Config {
	return Config{
		URL:            s.amqpURL,
		Exchange:       "test-exchange-" + name,
		RoutingKey:     "news.request",
		QueueName:      "test-queue-" + name,
		DeadLetterName: "test-queue-" + name + "-dead",
	}
}

func (s *QueueIntegrationSuite) consumeDeadLetter(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.DeadLetterName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for dead-lettered message")
		return nil
	}
}

func (s *QueueIntegrationSuite) TestPublishConsume_Roundtrip() {
	cfg := s.newConfig("roundtrip")

	pub, err := NewPublisher(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	consumer, err := NewConsumer(cfg, s.logger)
	s.Require().NoError(err)
	defer consumer.Close()

	received := make(chan domain.NewsRequest, 1)
	consumer.Register(cfg.RoutingKey, func(ctx context.Context, req domain.NewsRequest) error {
		received <- req
		return nil
	})

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	err = pub.Publish(s.ctx, domain.NewsRequest{
		Username:    "alice",
		Preferences: []string{"tech", "science"},
	})
	s.Require().NoError(err)

	select {
	case req := <-received:
		s.Equal("alice", req.Username)
		s.Equal([]string{"tech", "science"}, req.Preferences)
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for request")
	}
}

func (s *QueueIntegrationSuite) TestConsume_FetchFailureDeadLetters() {
	cfg := s.newConfig("fetchfail")

	pub, err := NewPublisher(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	consumer, err := NewConsumer(cfg, s.logger)
	s.Require().NoError(err)
	defer consumer.Close()

	consumer.Register(cfg.RoutingKey, func(ctx context.Context, req domain.NewsRequest) error {
		return fmt.Errorf("%w: provider unreachable", domain.ErrFetchFailed)
	})

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	err = pub.Publish(s.ctx, domain.NewsRequest{Username: "alice"})
	s.Require().NoError(err)

	msg := s.consumeDeadLetter(cfg)
	s.Require().NotNil(msg)

	var req domain.NewsRequest
	s.NoError(json.Unmarshal(msg.Body, &req))
	s.Equal("alice", req.Username)
}

func (s *QueueIntegrationSuite) TestConsume_UnknownUserAcked() {
	cfg := s.newConfig("unknownuser")

	pub, err := NewPublisher(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	consumer, err := NewConsumer(cfg, s.logger)
	s.Require().NoError(err)
	defer consumer.Close()

	handled := make(chan struct{}, 1)
	consumer.Register(cfg.RoutingKey, func(ctx context.Context, req domain.NewsRequest) error {
		handled <- struct{}{}
		return fmt.Errorf("%w: ghost", domain.ErrUserNotFound)
	})

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	err = pub.Publish(s.ctx, domain.NewsRequest{Username: "ghost"})
	s.Require().NoError(err)

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for handler")
	}

	// Acked, not dead-lettered: the dead-letter queue stays empty.
	time.Sleep(time.Second)

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(cfg.DeadLetterName, true, false, false, false, nil)
	s.Require().NoError(err)
	s.Equal(0, q.Messages)
}

func (s *QueueIntegrationSuite) TestConsume_MalformedMessageDeadLetters() {
	cfg := s.newConfig("malformed")

	consumer, err := NewConsumer(cfg, s.logger)
	s.Require().NoError(err)
	defer consumer.Close()

	consumer.Register(cfg.RoutingKey, func(ctx context.Context, req domain.NewsRequest) error {
		s.Fail("handler should not run for malformed messages")
		return nil
	})

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = consumer.Run(runCtx) }()

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	err = ch.PublishWithContext(s.ctx, cfg.Exchange, cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        []byte("{not json"),
	})
	s.Require().NoError(err)

	msg := s.consumeDeadLetter(cfg)
	s.Require().NotNil(msg)
	s.Equal("{not json", string(msg.Body))
}
