package push_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravlr/internal/service/push"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	pub := push.NewAMQPPublisher(ch, "notification.direct", "push.queue")

	job := push.Job{
		UserID:    uuid.New(),
		RequestID: uuid.New(),
		Kind:      "request_results",
		Title:     "Time's up!",
		Body:      "Your ramen results are ready.",
		Link:      "/requests/x/results",
	}
	require.NoError(t, pub.Publish(context.Background(), job))

	require.Len(t, ch.out, 1)
	got := ch.out[0]
	assert.Equal(t, "notification.direct", got.exchange)
	assert.Equal(t, "push.queue", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.NotEmpty(t, got.msg.MessageId)

	var decoded push.Job
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, job, decoded)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	pub := push.NewAMQPPublisher(&fakeChannel{err: errors.New("channel closed")}, "x", "q")

	err := pub.Publish(context.Background(), push.Job{Kind: "request_results"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, push.LogPublisher{}.Publish(context.Background(), push.Job{}))
}
