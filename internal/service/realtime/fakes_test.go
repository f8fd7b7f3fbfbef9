package realtime_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cravlr/internal/domain"
)

type fakeRequests struct {
	mu       sync.Mutex
	requests map[uuid.UUID]domain.Request
	recs     []domain.Recommendation
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{requests: make(map[uuid.UUID]domain.Request)}
}

func (f *fakeRequests) put(req domain.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = req
}

func (f *fakeRequests) addRecommendation(rec domain.Recommendation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
}

func (f *fakeRequests) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (f *fakeRequests) ListActive(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Request
	for _, req := range f.requests {
		if req.RequesterID == requesterID && req.IsActive() {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequests) ListIncoming(ctx context.Context, viewer uuid.UUID, since time.Time) ([]domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Request
	for _, req := range f.requests {
		if req.RequesterID != viewer && req.IsActive() && req.CreatedAt.After(since) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequests) HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.recs {
		if rec.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequests) ListRecommendationsSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Recommendation
	for _, rec := range f.recs {
		req, ok := f.requests[rec.RequestID]
		if ok && req.RequesterID == requesterID && rec.CreatedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	mu   sync.Mutex
	rows []domain.Notification
}

func (f *fakeNotifications) add(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, n)
}

func (f *fakeNotifications) GetResults(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.RequestID == requestID && n.RequesterID == requesterID {
			return &n, nil
		}
	}
	return nil, nil
}

func (f *fakeNotifications) ListUnread(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.rows {
		if n.RequesterID == requesterID && !n.IsRead() {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeExpiry struct {
	mu     sync.Mutex
	synced [][]domain.Request
}

func (f *fakeExpiry) Sync(reqs []domain.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, reqs)
}

func (f *fakeExpiry) syncs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.synced)
}

type recordingQueue struct {
	mu    sync.Mutex
	pings []domain.Ping
}

func (q *recordingQueue) Push(p domain.Ping) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pings = append(q.pings, p)
	return true
}

func (q *recordingQueue) all() []domain.Ping {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Ping(nil), q.pings...)
}

func (q *recordingQueue) types() []domain.PingType {
	var out []domain.PingType
	for _, p := range q.all() {
		out = append(out, p.Type)
	}
	return out
}
