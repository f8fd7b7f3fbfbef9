package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravlr/internal/domain"
	"cravlr/internal/service/realtime"
)

func newRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func waitForFeed(t *testing.T, feed realtime.Feed) {
	assert.Eventually(t, func() bool {
		sub, err := feed.Subscribe()
		if err != nil {
			return false
		}
		sub.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisFeed_RoundTrip(t *testing.T) {
	client := newRedis(t)
	feed := realtime.NewRedisFeed(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)
	waitForFeed(t, feed)

	viewer := uuid.New()
	sub, err := feed.Subscribe(domain.ChangeFilter{Table: domain.TableNotifications, Column: "requester_id", Value: viewer.String()})
	require.NoError(t, err)
	defer sub.Close()

	ev, err := domain.NewChangeEvent(domain.TableNotifications, domain.ChangeInsert,
		domain.Notification{ID: uuid.New(), RequesterID: viewer, Type: domain.NotifRequestResults}, nil)
	require.NoError(t, err)
	require.NoError(t, realtime.NewRedisPublisher(client).Publish(ctx, ev))

	select {
	case got := <-sub.Events():
		assert.Equal(t, domain.TableNotifications, got.Table)
		assert.Equal(t, domain.ChangeInsert, got.Type)
		assert.JSONEq(t, string(ev.Record), string(got.Record))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestManager_RunFallsBackToPollingThenResubscribes(t *testing.T) {
	client := newRedis(t)
	feed := realtime.NewRedisFeed(client)
	h := newHarness(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.manager.Run(ctx)

	assert.Eventually(t, h.manager.Polling, time.Second, 5*time.Millisecond)

	go feed.Run(ctx)
	waitForFeed(t, feed)

	h.clk.BlockUntil(2)
	h.clk.Advance(5 * time.Second)
	assert.Eventually(t, func() bool { return !h.manager.Polling() }, time.Second, 5*time.Millisecond)

	req := h.ownRequest(domain.RequestExpired)
	n := domain.Notification{ID: uuid.New(), RequestID: req.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults}
	ev, err := domain.NewChangeEvent(domain.TableNotifications, domain.ChangeInsert, n, nil)
	require.NoError(t, err)
	require.NoError(t, realtime.NewRedisPublisher(client).Publish(ctx, ev))

	assert.Eventually(t, func() bool {
		pings := h.queue.all()
		return len(pings) == 1 && pings[0].ID == req.ID.String()
	}, 2*time.Second, 10*time.Millisecond)
}
