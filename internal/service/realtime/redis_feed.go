package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"cravlr/internal/domain"
)

const RedisChannel = "cravlr:changes"

// RedisFeed relays change events published on a Redis channel by RedisPublisher.
type RedisFeed struct {
	*broadcaster
	client *redis.Client
	retry  time.Duration
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		broadcaster: newBroadcaster(),
		client:      client,
		retry:       2 * time.Second,
	}
}

func (f *RedisFeed) Subscribe(filters ...domain.ChangeFilter) (*Subscription, error) {
	return f.subscribe(filters)
}

// Run keeps a Redis subscription open until ctx is done, reopening it after failures.
func (f *RedisFeed) Run(ctx context.Context) {
	for {
		if err := f.consume(ctx); err != nil && ctx.Err() == nil {
			log.Printf("realtime: redis feed interrupted: %v", err)
		}
		f.setUp(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.retry):
		}
	}
}

func (f *RedisFeed) consume(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", RedisChannel, err)
	}
	f.setUp(true)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("realtime: dropping malformed change event: %v", err)
			continue
		}
		f.publish(ev)
	}
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	return p.client.Publish(ctx, RedisChannel, data).Err()
}
