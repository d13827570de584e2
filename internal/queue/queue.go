package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds the broker topology shared by publisher and consumer.
type Config struct {
	URL            string
	Exchange       string
	RoutingKey     string
	QueueName      string
	DeadLetterName string
}

const deadLetterSuffix = ".dead"

// declareTopology sets up the request exchange and queue plus the dead-letter
// pair the consumer routes unprocessable messages to.
func declareTopology(ch *amqp.Channel, cfg Config) error {
	dlx := cfg.Exchange + deadLetterSuffix

	err := ch.ExchangeDeclare(
		dlx,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}

	dlq, err := ch.QueueDeclare(
		cfg.DeadLetterName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}

	if err := ch.QueueBind(dlq.Name, cfg.RoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange": dlx,
		},
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}
