package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Job is one push notification for the external push worker.
type Job struct {
	UserID    uuid.UUID `json:"user_id"`
	RequestID uuid.UUID `json:"request_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
}

type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPPublisher struct {
	channel  Channel
	exchange string
	queue    string
}

func NewAMQPPublisher(ch Channel, exchange, queue string) *AMQPPublisher {
	return &AMQPPublisher{channel: ch, exchange: exchange, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal push job: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish push job: %w", err)
	}
	return nil
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, job Job) error {
	log.Printf("push disabled, dropping %s job for user %s", job.Kind, job.UserID)
	return nil
}
