package realtime

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"cravlr/internal/domain"
)

type RequestReader interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	ListActive(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListIncoming(ctx context.Context, viewer uuid.UUID, since time.Time) ([]domain.Request, error)
	HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error)
	ListRecommendationsSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error)
}

type NotificationReader interface {
	GetResults(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error)
	ListUnread(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error)
}

type ExpiryTracker interface {
	Sync(reqs []domain.Request)
}

type Pusher interface {
	Push(p domain.Ping) bool
}

type Deps struct {
	Clock         clockwork.Clock
	Feed          Feed
	Requests      RequestReader
	Notifications NotificationReader
	Expiry        ExpiryTracker
	Queue         Pusher
}

type Options struct {
	PollInterval        time.Duration
	ResubscribeInterval time.Duration
}

// Manager turns one viewer's slice of the change feed into pings, and polls while the feed is down.
type Manager struct {
	viewer uuid.UUID
	deps   Deps
	opts   Options

	dnd atomic.Bool

	mu               sync.Mutex
	known            map[uuid.UUID]domain.Request
	incomingSince    time.Time
	recommendedSince time.Time
	delayed          map[uuid.UUID]clockwork.Timer
	announced        map[uuid.UUID]struct{}
	polling          bool
}

func NewManager(viewer uuid.UUID, deps Deps, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ResubscribeInterval <= 0 {
		opts.ResubscribeInterval = 5 * time.Second
	}
	now := deps.Clock.Now()
	return &Manager{
		viewer:           viewer,
		deps:             deps,
		opts:             opts,
		known:            make(map[uuid.UUID]domain.Request),
		incomingSince:    now,
		recommendedSince: now,
		delayed:          make(map[uuid.UUID]clockwork.Timer),
		announced:        make(map[uuid.UUID]struct{}),
	}
}

func (m *Manager) filters() []domain.ChangeFilter {
	viewer := m.viewer.String()
	return []domain.ChangeFilter{
		{Table: domain.TableNotifications, Event: domain.ChangeInsert, Column: "requester_id", Value: viewer},
		{Table: domain.TableFoodRequests, Event: domain.ChangeAny, Column: "requester_id", Value: viewer},
		{Table: domain.TableFoodRequests, Event: domain.ChangeInsert},
		{Table: domain.TableRecommendations, Event: domain.ChangeInsert},
	}
}

// Run loads the viewer's active requests, then follows the feed until ctx is done.
// While the feed is unavailable it polls and keeps trying to resubscribe.
func (m *Manager) Run(ctx context.Context) {
	m.Reload(ctx)
	defer m.cancelDelayed()

	for ctx.Err() == nil {
		sub, err := m.deps.Feed.Subscribe(m.filters()...)
		if err != nil {
			log.Printf("realtime: subscribe failed for %s, polling: %v", m.viewer, err)
			m.pollUntilResubscribe(ctx)
			continue
		}

		m.setPolling(false)
		// catch up on anything that happened while we were not subscribed
		m.Poll(ctx)
		m.consume(ctx, sub)
		sub.Close()
	}
}

func (m *Manager) consume(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				log.Printf("realtime: feed closed for %s", m.viewer)
				return
			}
			m.Handle(ctx, ev)
		}
	}
}

func (m *Manager) pollUntilResubscribe(ctx context.Context) {
	m.setPolling(true)
	m.Poll(ctx)

	poll := m.deps.Clock.NewTicker(m.opts.PollInterval)
	defer poll.Stop()
	resubscribe := m.deps.Clock.NewTimer(m.opts.ResubscribeInterval)
	defer resubscribe.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.Chan():
			m.Poll(ctx)
		case <-resubscribe.Chan():
			return
		}
	}
}

func (m *Manager) Polling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polling
}

func (m *Manager) setPolling(on bool) {
	m.mu.Lock()
	m.polling = on
	m.mu.Unlock()
}

// SetDND toggles do-not-disturb. Enabling it clears the queue and drops pending new-request pings.
func (m *Manager) SetDND(enabled bool) {
	m.dnd.Store(enabled)
	if !enabled {
		return
	}
	m.cancelDelayed()
	m.deps.Queue.Push(domain.ClearAllPing())
}

func (m *Manager) DND() bool {
	return m.dnd.Load()
}

// Handle translates one change event.
func (m *Manager) Handle(ctx context.Context, ev domain.ChangeEvent) {
	switch ev.Table {
	case domain.TableNotifications:
		if ev.Type == domain.ChangeInsert {
			m.handleNotification(ctx, ev)
		}
	case domain.TableFoodRequests:
		m.handleRequestChange(ctx, ev)
	case domain.TableRecommendations:
		if ev.Type == domain.ChangeInsert {
			m.handleRecommendation(ctx, ev)
		}
	}
}

func (m *Manager) handleNotification(ctx context.Context, ev domain.ChangeEvent) {
	var n domain.Notification
	if err := ev.Decode(&n); err != nil {
		log.Printf("realtime: bad notification event: %v", err)
		return
	}
	m.pushResults(ctx, n)
}

// pushResults announces an unread results row once per session, however often polling sees it again.
func (m *Manager) pushResults(ctx context.Context, n domain.Notification) {
	if n.RequesterID != m.viewer || n.Type != domain.NotifRequestResults || n.IsRead() {
		return
	}
	m.mu.Lock()
	_, done := m.announced[n.ID]
	m.mu.Unlock()
	if done {
		return
	}
	req, err := m.deps.Requests.GetRequest(ctx, n.RequestID)
	if err != nil {
		log.Printf("realtime: failed to load request %s for notification: %v", n.RequestID, err)
		return
	}
	if req == nil {
		return
	}
	m.deps.Queue.Push(domain.NewRequestResultsPing(req))

	m.mu.Lock()
	m.announced[n.ID] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) handleRequestChange(ctx context.Context, ev domain.ChangeEvent) {
	var req domain.Request
	record := ev.Decode
	if ev.Type == domain.ChangeDelete {
		record = ev.DecodeOld
	}
	if err := record(&req); err != nil {
		log.Printf("realtime: bad request event: %v", err)
		return
	}

	if req.RequesterID != m.viewer {
		if ev.Type == domain.ChangeInsert {
			m.handleIncoming(req)
		}
		return
	}

	if ev.Type == domain.ChangeUpdate && req.IsTerminal() {
		var old domain.Request
		if err := ev.DecodeOld(&old); err == nil && old.IsActive() {
			m.checkResults(ctx, req)
		}
	}
	m.Reload(ctx)
}

// checkResults is the fallback path for a request that just left the active state.
func (m *Manager) checkResults(ctx context.Context, req domain.Request) {
	n, err := m.deps.Notifications.GetResults(ctx, req.ID, m.viewer)
	if err != nil {
		log.Printf("realtime: failed to load results notification for %s: %v", req.ID, err)
		return
	}
	if n != nil && n.IsRead() {
		return
	}

	ok, err := m.deps.Requests.HasRecommendations(ctx, req.ID)
	if err != nil {
		log.Printf("realtime: recommendation check failed for %s: %v", req.ID, err)
		return
	}
	if ok {
		m.deps.Queue.Push(domain.NewRequestResultsPing(&req))
	}
}

// handleIncoming announces someone else's craving once its collection window has ended.
func (m *Manager) handleIncoming(req domain.Request) {
	if m.dnd.Load() || !req.IsActive() {
		return
	}

	ping := domain.NewRequestPing(&req)
	wait := req.CollectionEndsAt().Sub(m.deps.Clock.Now())
	if wait <= 0 {
		m.deps.Queue.Push(ping)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.delayed[req.ID]; ok {
		return
	}
	m.delayed[req.ID] = m.deps.Clock.AfterFunc(wait, func() {
		m.mu.Lock()
		delete(m.delayed, req.ID)
		m.mu.Unlock()
		if !m.dnd.Load() {
			m.deps.Queue.Push(ping)
		}
	})
}

func (m *Manager) handleRecommendation(ctx context.Context, ev domain.ChangeEvent) {
	var rec domain.Recommendation
	if err := ev.Decode(&rec); err != nil {
		log.Printf("realtime: bad recommendation event: %v", err)
		return
	}
	if rec.RecommenderID == m.viewer {
		return
	}
	req, err := m.deps.Requests.GetRequest(ctx, rec.RequestID)
	if err != nil {
		log.Printf("realtime: failed to load request %s for recommendation: %v", rec.RequestID, err)
		return
	}
	if req == nil || req.RequesterID != m.viewer {
		return
	}
	m.deps.Queue.Push(domain.NewRecommendationPing(req, &rec))
}

// Reload re-reads the viewer's active requests and hands them to the expiry manager.
func (m *Manager) Reload(ctx context.Context) []domain.Request {
	reqs, err := m.deps.Requests.ListActive(ctx, m.viewer)
	if err != nil {
		log.Printf("realtime: failed to load active requests for %s: %v", m.viewer, err)
		return nil
	}
	m.deps.Expiry.Sync(reqs)

	known := make(map[uuid.UUID]domain.Request, len(reqs))
	for _, req := range reqs {
		known[req.ID] = req
	}
	m.mu.Lock()
	m.known = known
	m.mu.Unlock()
	return reqs
}

// Poll diffs current state against what the manager saw last time and emits the same pings the feed would have.
func (m *Manager) Poll(ctx context.Context) {
	m.mu.Lock()
	previous := m.known
	incomingSince := m.incomingSince
	recommendedSince := m.recommendedSince
	m.mu.Unlock()

	active, err := m.deps.Requests.ListActive(ctx, m.viewer)
	if err != nil {
		log.Printf("realtime: poll failed to load active requests: %v", err)
		return
	}
	m.deps.Expiry.Sync(active)

	known := make(map[uuid.UUID]domain.Request, len(active))
	for _, req := range active {
		known[req.ID] = req
	}
	for id := range previous {
		if _, still := known[id]; still {
			continue
		}
		req, err := m.deps.Requests.GetRequest(ctx, id)
		if err != nil {
			log.Printf("realtime: poll failed to load request %s: %v", id, err)
			known[id] = previous[id]
			continue
		}
		if req != nil && req.IsTerminal() {
			m.checkResults(ctx, *req)
		}
	}

	unread, err := m.deps.Notifications.ListUnread(ctx, m.viewer)
	if err != nil {
		log.Printf("realtime: poll failed to load notifications: %v", err)
	} else {
		m.forgetRead(unread)
	}
	for _, n := range unread {
		m.pushResults(ctx, n)
	}

	incoming, err := m.deps.Requests.ListIncoming(ctx, m.viewer, incomingSince)
	if err != nil {
		log.Printf("realtime: poll failed to load incoming requests: %v", err)
	}
	for _, req := range incoming {
		m.handleIncoming(req)
		if req.CreatedAt.After(incomingSince) {
			incomingSince = req.CreatedAt
		}
	}

	recs, err := m.deps.Requests.ListRecommendationsSince(ctx, m.viewer, recommendedSince)
	if err != nil {
		log.Printf("realtime: poll failed to load recommendations: %v", err)
	}
	for _, rec := range recs {
		if rec.CreatedAt.After(recommendedSince) {
			recommendedSince = rec.CreatedAt
		}
		if rec.RecommenderID == m.viewer {
			continue
		}
		if req, ok := known[rec.RequestID]; ok {
			m.deps.Queue.Push(domain.NewRecommendationPing(&req, &rec))
		}
	}

	m.mu.Lock()
	m.known = known
	m.incomingSince = incomingSince
	m.recommendedSince = recommendedSince
	m.mu.Unlock()
}

// forgetRead drops announced rows that are no longer unread.
func (m *Manager) forgetRead(unread []domain.Notification) {
	still := make(map[uuid.UUID]struct{}, len(unread))
	for _, n := range unread {
		still[n.ID] = struct{}{}
	}
	m.mu.Lock()
	for id := range m.announced {
		if _, ok := still[id]; !ok {
			delete(m.announced, id)
		}
	}
	m.mu.Unlock()
}

func (m *Manager) cancelDelayed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.delayed {
		t.Stop()
		delete(m.delayed, id)
	}
}
