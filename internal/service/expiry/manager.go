package expiry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"cravlr/internal/domain"
)

// Manager owns the only scheduler for each of one viewer's requests.
type Manager struct {
	viewer uuid.UUID
	deps   Deps
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	foreground atomic.Bool

	mu         sync.Mutex
	schedulers map[uuid.UUID]*Scheduler
	closed     bool
}

func NewManager(ctx context.Context, viewer uuid.UUID, deps Deps, opts Options) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		viewer:     viewer,
		deps:       deps,
		opts:       opts.withDefaults(),
		ctx:        ctx,
		cancel:     cancel,
		schedulers: make(map[uuid.UUID]*Scheduler),
	}
	m.foreground.Store(true)
	return m
}

// Track schedules req, or re-arms the existing scheduler for the same id.
func (m *Manager) Track(req domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackLocked(req)
}

func (m *Manager) trackLocked(req domain.Request) {
	if m.closed {
		return
	}

	if s, ok := m.schedulers[req.ID]; ok {
		if !s.Rearm(req) {
			delete(m.schedulers, req.ID)
		}
		return
	}

	if !Eligible(req, m.viewer) {
		return
	}
	s := NewScheduler(m.ctx, req, m.viewer, m.deps, m.opts, m.foreground.Load)
	if s.Arm() {
		m.schedulers[req.ID] = s
	}
}

func (m *Manager) Untrack(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedulers[id]; ok {
		s.Cancel()
		delete(m.schedulers, id)
	}
}

// Sync makes the tracked set exactly the given active requests.
func (m *Manager) Sync(reqs []domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make(map[uuid.UUID]struct{}, len(reqs))
	for _, req := range reqs {
		keep[req.ID] = struct{}{}
		m.trackLocked(req)
	}
	for id, s := range m.schedulers {
		if _, ok := keep[id]; !ok {
			s.Cancel()
			delete(m.schedulers, id)
		}
	}
}

// SetForeground records visibility. Becoming foreground re-checks every deadline at once.
func (m *Manager) SetForeground(fg bool) {
	was := m.foreground.Swap(fg)
	if !fg || was {
		return
	}
	for _, s := range m.snapshot() {
		s.Check()
	}
}

func (m *Manager) Foreground() bool {
	return m.foreground.Load()
}

// Realign re-arms every scheduler against the current skew.
func (m *Manager) Realign() {
	for _, s := range m.snapshot() {
		s.Realign()
	}
}

func (m *Manager) Tracked() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.schedulers))
	for id := range m.schedulers {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	for id, s := range m.schedulers {
		s.Cancel()
		delete(m.schedulers, id)
	}
}

func (m *Manager) snapshot() []*Scheduler {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Scheduler, 0, len(m.schedulers))
	for _, s := range m.schedulers {
		out = append(out, s)
	}
	return out
}
