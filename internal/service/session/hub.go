package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"cravlr/internal/service/expiry"
	"cravlr/internal/service/popup"
	"cravlr/internal/service/presenter"
	"cravlr/internal/service/realtime"
)

type SkewSource interface {
	Skew() time.Duration
	OnChange(fn func(time.Duration)) func()
}

type NotificationService interface {
	realtime.NotificationReader
	presenter.Decider
}

type Deps struct {
	Clock         clockwork.Clock
	Skew          SkewSource
	Feed          realtime.Feed
	Requests      realtime.RequestReader
	Notifications NotificationService
}

type Options struct {
	Expiry      expiry.Options
	Popup       popup.Options
	Realtime    realtime.Options
	IdleTimeout time.Duration
}

// Session is one viewer's delivery pipeline.
type Session struct {
	Viewer    uuid.UUID
	Queue     *popup.Queue
	Expiry    *expiry.Manager
	Realtime  *realtime.Manager
	Presenter *presenter.Presenter

	clock     clockwork.Clock
	cancel    context.CancelFunc
	unsubSkew func()
	done      chan struct{}
	once      sync.Once

	lastSeen atomic.Int64
	streams  atomic.Int32
}

func newSession(parent context.Context, viewer uuid.UUID, deps Deps, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	queue := popup.NewQueue(deps.Clock, opts.Popup)
	expiries := expiry.NewManager(ctx, viewer, expiry.Deps{
		Clock:   deps.Clock,
		Skew:    deps.Skew,
		Checker: deps.Requests,
		Pusher:  queue,
	}, opts.Expiry)
	rt := realtime.NewManager(viewer, realtime.Deps{
		Clock:         deps.Clock,
		Feed:          deps.Feed,
		Requests:      deps.Requests,
		Notifications: deps.Notifications,
		Expiry:        expiries,
		Queue:         queue,
	}, opts.Realtime)

	s := &Session{
		Viewer:    viewer,
		Queue:     queue,
		Expiry:    expiries,
		Realtime:  rt,
		Presenter: presenter.New(viewer, queue, deps.Notifications),
		clock:     deps.Clock,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.touch()
	s.unsubSkew = deps.Skew.OnChange(func(time.Duration) {
		expiries.Realign()
	})

	go func() {
		defer close(s.done)
		rt.Run(ctx)
	}()

	return s
}

func (s *Session) touch() {
	s.lastSeen.Store(s.clock.Now().UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// SetForeground forwards the viewer's visibility. Coming back re-checks every deadline.
func (s *Session) SetForeground(fg bool) {
	s.touch()
	s.Expiry.SetForeground(fg)
}

// SetDND toggles do-not-disturb. Turning it on clears every queued popup.
func (s *Session) SetDND(enabled bool) {
	s.touch()
	s.Realtime.SetDND(enabled)
}

// Attach marks a live stream on the session. The session is not reaped until the returned func runs.
func (s *Session) Attach() func() {
	s.streams.Add(1)
	s.touch()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.streams.Add(-1)
			s.touch()
		})
	}
}

// Done is closed once the session's realtime loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.unsubSkew()
		s.Expiry.Close()
		<-s.done
	})
}

// Hub owns at most one session per viewer.
type Hub struct {
	ctx  context.Context
	deps Deps
	opts Options

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

func NewHub(ctx context.Context, deps Deps, opts Options) *Hub {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Hub{
		ctx:      ctx,
		deps:     deps,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Get returns the viewer's session, starting one if needed. It returns nil once the hub is closed.
func (h *Hub) Get(viewer uuid.UUID) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if s, ok := h.sessions[viewer]; ok {
		s.touch()
		return s
	}
	s := newSession(h.ctx, viewer, h.deps, h.opts)
	h.sessions[viewer] = s
	return s
}

func (h *Hub) Lookup(viewer uuid.UUID) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[viewer]
	if ok {
		s.touch()
	}
	return s, ok
}

func (h *Hub) Remove(viewer uuid.UUID) bool {
	h.mu.Lock()
	s, ok := h.sessions[viewer]
	delete(h.sessions, viewer)
	h.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Reap closes sessions without a stream that have been idle longer than the idle timeout.
func (h *Hub) Reap() int {
	now := h.deps.Clock.Now()

	h.mu.Lock()
	var idle []*Session
	for id, s := range h.sessions {
		if s.streams.Load() > 0 || s.idleSince(now) < h.opts.IdleTimeout {
			continue
		}
		idle = append(idle, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

func (h *Hub) Run(ctx context.Context) {
	interval := h.opts.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := h.deps.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.Reap()
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := h.sessions
	h.sessions = make(map[uuid.UUID]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
