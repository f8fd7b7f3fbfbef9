package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravlr/internal/domain"
	"cravlr/internal/service/popup"
	"cravlr/internal/service/realtime"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clk           clockwork.FakeClock
	viewer        uuid.UUID
	requests      *fakeRequests
	notifications *fakeNotifications
	expiry        *fakeExpiry
	queue         *recordingQueue
	manager       *realtime.Manager
}

func newHarness(feed realtime.Feed) *harness {
	h := &harness{
		clk:           clockwork.NewFakeClockAt(now),
		viewer:        uuid.New(),
		requests:      newFakeRequests(),
		notifications: &fakeNotifications{},
		expiry:        &fakeExpiry{},
		queue:         &recordingQueue{},
	}
	h.manager = realtime.NewManager(h.viewer, realtime.Deps{
		Clock:         h.clk,
		Feed:          feed,
		Requests:      h.requests,
		Notifications: h.notifications,
		Expiry:        h.expiry,
		Queue:         h.queue,
	}, realtime.Options{})
	return h
}

func (h *harness) ownRequest(status domain.RequestStatus) domain.Request {
	req := domain.Request{
		ID:             uuid.New(),
		RequesterID:    h.viewer,
		FoodType:       "ramen",
		LocationCity:   "Austin",
		LocationState:  "TX",
		ResponseWindow: 30,
		Status:         status,
		ExpiresAt:      now.Add(30 * time.Minute),
		CreatedAt:      now.Add(-time.Minute),
	}
	h.requests.put(req)
	return req
}

func (h *harness) recommend(req domain.Request, by uuid.UUID) domain.Recommendation {
	rec := domain.Recommendation{
		ID:             uuid.New(),
		RequestID:      req.ID,
		RecommenderID:  by,
		RestaurantName: "Ramen Tatsu-Ya",
		CreatedAt:      now.Add(time.Second),
	}
	h.requests.addRecommendation(rec)
	return rec
}

func event(t *testing.T, table string, typ domain.ChangeType, record, old any) domain.ChangeEvent {
	ev, err := domain.NewChangeEvent(table, typ, record, old)
	require.NoError(t, err)
	return ev
}

func TestManager_NotificationInsert(t *testing.T) {
	h := newHarness(nil)
	req := h.ownRequest(domain.RequestExpired)
	n := domain.Notification{ID: uuid.New(), RequestID: req.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults}

	h.manager.Handle(context.Background(), event(t, domain.TableNotifications, domain.ChangeInsert, n, nil))

	pings := h.queue.all()
	require.Len(t, pings, 1)
	assert.Equal(t, domain.PingRequestResults, pings[0].Type)
	assert.Equal(t, req.ID.String(), pings[0].ID)
}

func TestManager_NotificationForSomeoneElseIgnored(t *testing.T) {
	h := newHarness(nil)
	req := h.ownRequest(domain.RequestExpired)
	n := domain.Notification{ID: uuid.New(), RequestID: req.ID, RequesterID: uuid.New(), Type: domain.NotifRequestResults}

	h.manager.Handle(context.Background(), event(t, domain.TableNotifications, domain.ChangeInsert, n, nil))

	assert.Empty(t, h.queue.all())
}

func TestManager_RequestExpiredUpdate(t *testing.T) {
	t.Run("With recommendations", func(t *testing.T) {
		h := newHarness(nil)
		old := h.ownRequest(domain.RequestActive)
		h.recommend(old, uuid.New())
		updated := old
		updated.Status = domain.RequestExpired
		h.requests.put(updated)

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeUpdate, updated, old))

		assert.Equal(t, []domain.PingType{domain.PingRequestResults}, h.queue.types())
		assert.Equal(t, 1, h.expiry.syncs())
	})

	t.Run("No recommendations", func(t *testing.T) {
		h := newHarness(nil)
		old := h.ownRequest(domain.RequestActive)
		updated := old
		updated.Status = domain.RequestClosed

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeUpdate, updated, old))

		assert.Empty(t, h.queue.all())
		assert.Equal(t, 1, h.expiry.syncs())
	})

	t.Run("Results already read", func(t *testing.T) {
		h := newHarness(nil)
		old := h.ownRequest(domain.RequestActive)
		h.recommend(old, uuid.New())
		readAt := now
		h.notifications.add(domain.Notification{RequestID: old.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults, ReadAt: &readAt})
		updated := old
		updated.Status = domain.RequestExpired

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeUpdate, updated, old))

		assert.Empty(t, h.queue.all())
	})

	t.Run("Already terminal", func(t *testing.T) {
		h := newHarness(nil)
		old := h.ownRequest(domain.RequestExpired)
		h.recommend(old, uuid.New())
		updated := old
		updated.Status = domain.RequestClosed

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeUpdate, updated, old))

		assert.Empty(t, h.queue.all())
	})
}

func TestManager_BothResultPathsConverge(t *testing.T) {
	h := newHarness(nil)
	clk := clockwork.NewFakeClockAt(now)
	queue := popup.NewQueue(clk, popup.Options{SeenRetention: 10 * time.Minute})
	m := realtime.NewManager(h.viewer, realtime.Deps{
		Clock: clk, Requests: h.requests, Notifications: h.notifications, Expiry: h.expiry, Queue: queue,
	}, realtime.Options{})

	old := h.ownRequest(domain.RequestActive)
	h.recommend(old, uuid.New())
	updated := old
	updated.Status = domain.RequestExpired
	h.requests.put(updated)
	n := domain.Notification{ID: uuid.New(), RequestID: old.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults}

	m.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeUpdate, updated, old))
	queue.DismissCurrent()
	m.Handle(context.Background(), event(t, domain.TableNotifications, domain.ChangeInsert, n, nil))

	assert.Equal(t, popup.StateEmpty, queue.Snapshot().State)
}

func TestManager_UnreadResultsShownOncePerSession(t *testing.T) {
	h := newHarness(nil)
	clk := clockwork.NewFakeClockAt(now)
	queue := popup.NewQueue(clk, popup.Options{SeenRetention: 10 * time.Minute})
	m := realtime.NewManager(h.viewer, realtime.Deps{
		Clock: clk, Requests: h.requests, Notifications: h.notifications, Expiry: h.expiry, Queue: queue,
	}, realtime.Options{})
	ctx := context.Background()

	req := h.ownRequest(domain.RequestExpired)
	n := domain.Notification{ID: uuid.New(), RequestID: req.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults}
	h.notifications.add(n)

	m.Poll(ctx)
	cur, ok := queue.Current()
	require.True(t, ok)
	assert.Equal(t, req.ID.String(), cur.ID)
	queue.DismissCurrent()

	// past the queue's own memory of the ping
	clk.Advance(11 * time.Minute)
	m.Poll(ctx)
	m.Handle(ctx, event(t, domain.TableNotifications, domain.ChangeInsert, n, nil))

	assert.Equal(t, popup.StateEmpty, queue.Snapshot().State)
}

func TestManager_UnreadResultsPolledRepeatedly(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	req := h.ownRequest(domain.RequestExpired)
	h.notifications.add(domain.Notification{ID: uuid.New(), RequestID: req.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults})

	h.manager.Poll(ctx)
	h.manager.Poll(ctx)
	h.manager.Poll(ctx)

	assert.Equal(t, []domain.PingType{domain.PingRequestResults}, h.queue.types())
}

func TestManager_ViewerRequestChangeReloads(t *testing.T) {
	h := newHarness(nil)
	req := h.ownRequest(domain.RequestActive)

	h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeInsert, req, nil))

	require.Equal(t, 1, h.expiry.syncs())
	assert.Equal(t, []domain.Request{req}, h.expiry.synced[0])
	assert.Empty(t, h.queue.all())
}

func TestManager_IncomingRequest(t *testing.T) {
	other := func(h *harness, created time.Time, window int) domain.Request {
		req := domain.Request{
			ID: uuid.New(), RequesterID: uuid.New(), FoodType: "tacos", LocationCity: "Austin",
			ResponseWindow: window, Status: domain.RequestActive, CreatedAt: created, ExpiresAt: created.Add(time.Hour),
		}
		h.requests.put(req)
		return req
	}

	t.Run("Collection window over", func(t *testing.T) {
		h := newHarness(nil)
		req := other(h, now.Add(-20*time.Minute), 15)

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeInsert, req, nil))

		pings := h.queue.all()
		require.Len(t, pings, 1)
		assert.Equal(t, domain.PingNewRequest, pings[0].Type)
		assert.Equal(t, domain.UrgencyQuick, pings[0].Payload.(domain.NewRequestPayload).Urgency)
		assert.Equal(t, 0, h.expiry.syncs())
	})

	t.Run("Delayed until collection ends", func(t *testing.T) {
		h := newHarness(nil)
		req := other(h, now, 10)

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeInsert, req, nil))
		assert.Empty(t, h.queue.all())

		h.clk.BlockUntil(1)
		h.clk.Advance(10 * time.Minute)
		assert.Eventually(t, func() bool { return len(h.queue.all()) == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("DND suppresses", func(t *testing.T) {
		h := newHarness(nil)
		h.manager.SetDND(true)
		req := other(h, now.Add(-time.Hour), 1)

		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeInsert, req, nil))

		pings := h.queue.all()
		require.Len(t, pings, 1)
		assert.True(t, pings[0].IsClearAll())
	})

	t.Run("DND during delay cancels", func(t *testing.T) {
		h := newHarness(nil)
		req := other(h, now, 10)
		h.manager.Handle(context.Background(), event(t, domain.TableFoodRequests, domain.ChangeInsert, req, nil))
		h.clk.BlockUntil(1)

		h.manager.SetDND(true)
		h.clk.Advance(10 * time.Minute)

		assert.Never(t, func() bool {
			for _, p := range h.queue.all() {
				if p.Type == domain.PingNewRequest {
					return true
				}
			}
			return false
		}, 50*time.Millisecond, 5*time.Millisecond)
	})
}

func TestManager_RecommendationInsert(t *testing.T) {
	h := newHarness(nil)
	mine := h.ownRequest(domain.RequestActive)
	theirs := domain.Request{ID: uuid.New(), RequesterID: uuid.New(), Status: domain.RequestActive}
	h.requests.put(theirs)

	rec := h.recommend(mine, uuid.New())
	selfRec := h.recommend(mine, h.viewer)
	otherRec := h.recommend(theirs, uuid.New())

	for _, r := range []domain.Recommendation{rec, selfRec, otherRec} {
		h.manager.Handle(context.Background(), event(t, domain.TableRecommendations, domain.ChangeInsert, r, nil))
	}

	pings := h.queue.all()
	require.Len(t, pings, 1)
	assert.Equal(t, domain.PingRecommendation, pings[0].Type)
	assert.Equal(t, rec.ID.String(), pings[0].ID)
	assert.Equal(t, "Ramen Tatsu-Ya was suggested for your ramen craving.", pings[0].Payload.Message())
}

func TestManager_PollDiffsState(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	req := h.ownRequest(domain.RequestActive)

	h.manager.Poll(ctx)
	assert.Empty(t, h.queue.all())
	assert.Equal(t, 1, h.expiry.syncs())

	h.recommend(req, uuid.New())
	h.manager.Poll(ctx)
	assert.Equal(t, []domain.PingType{domain.PingRecommendation}, h.queue.types())

	expired := req
	expired.Status = domain.RequestExpired
	h.requests.put(expired)
	h.manager.Poll(ctx)
	assert.Equal(t, []domain.PingType{domain.PingRecommendation, domain.PingRequestResults}, h.queue.types())
	assert.Empty(t, h.expiry.synced[2])

	h.manager.Poll(ctx)
	assert.Len(t, h.queue.all(), 2, "a request that already left the active set is not re-announced")
}

func TestManager_PollPicksUpUnreadAndIncoming(t *testing.T) {
	h := newHarness(nil)
	mine := h.ownRequest(domain.RequestExpired)
	h.notifications.add(domain.Notification{ID: uuid.New(), RequestID: mine.ID, RequesterID: h.viewer, Type: domain.NotifRequestResults})
	incoming := domain.Request{
		ID: uuid.New(), RequesterID: uuid.New(), FoodType: "pho", Status: domain.RequestActive,
		ResponseWindow: 1, CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Hour),
	}
	h.requests.put(incoming)
	stale := domain.Request{
		ID: uuid.New(), RequesterID: uuid.New(), FoodType: "bbq", Status: domain.RequestActive,
		ResponseWindow: 1, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	}
	h.requests.put(stale)

	h.manager.Poll(context.Background())

	assert.Equal(t, []domain.PingType{domain.PingRequestResults}, h.queue.types())
	h.clk.BlockUntil(1)
	h.clk.Advance(time.Minute + time.Second)
	assert.Eventually(t, func() bool { return len(h.queue.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, incoming.ID.String(), h.queue.all()[1].ID)
}
