package config

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewRabbitMQ dials the broker and declares the push exchange and its queue.
func NewRabbitMQ(cfg *Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.PushExchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.PushExchange, err)
	}

	if _, err := ch.QueueDeclare(cfg.PushQueue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", cfg.PushQueue, err)
	}

	if err := ch.QueueBind(cfg.PushQueue, cfg.PushQueue, cfg.PushExchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to bind queue %s: %w", cfg.PushQueue, err)
	}

	return conn, ch, nil
}
