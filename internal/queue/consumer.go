package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_digest/internal/domain"
)

// Handler processes one decoded news request. A nil return or a
// domain.ErrUserNotFound means the message reached a terminal state and is
// acknowledged; domain.ErrFetchFailed and unexpected errors route the
// message to the dead-letter queue.
type Handler func(ctx context.Context, req domain.NewsRequest) error

// Consumer pulls news requests off the queue and dispatches them to the
// handler registered for the delivery's routing key. Messages are
// acknowledged only after the handler returns.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	handlers  map[string]Handler
	logger    *slog.Logger
}

func NewConsumer(cfg Config, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// One request runs to completion before the next is delivered.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
	)

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queueName: cfg.QueueName,
		handlers:  make(map[string]Handler),
		logger:    logger,
	}, nil
}

// Register maps a routing key to a handler. Deliveries with an unregistered
// routing key are dead-lettered.
func (c *Consumer) Register(routingKey string, h Handler) {
	c.handlers[routingKey] = h
}

// Run consumes deliveries until the context is cancelled or the delivery
// channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("consumer started", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.dispatch(ctx, msg)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) {
	handler, ok := c.handlers[msg.RoutingKey]
	if !ok {
		c.logger.Error("no handler for routing key", "routing_key", msg.RoutingKey)
		_ = msg.Nack(false, false)
		return
	}

	var req domain.NewsRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		c.logger.Error("malformed message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	err := handler(ctx, req)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, domain.ErrUserNotFound):
		// Terminal failure: redelivery cannot help an unknown user.
		c.logger.Warn("request failed", "username", req.Username, "error", err)
		_ = msg.Ack(false)
	default:
		c.logger.Error("request dead-lettered", "username", req.Username, "error", err)
		_ = msg.Nack(false, false)
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
