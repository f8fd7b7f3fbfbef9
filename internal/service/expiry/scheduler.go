package expiry

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

type RecommendationChecker interface {
	HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error)
}

type Pusher interface {
	Push(p domain.Ping) bool
}

type SkewSource interface {
	Skew() time.Duration
}

type Deps struct {
	Clock   clockwork.Clock
	Skew    SkewSource
	Checker RecommendationChecker
	Pusher  Pusher
}

type Options struct {
	DueSlack  time.Duration
	Heartbeat time.Duration
}

func (o Options) withDefaults() Options {
	if o.DueSlack <= 0 {
		o.DueSlack = 50 * time.Millisecond
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = time.Second
	}
	return o
}

// Scheduler fires the results check for one request at most once, never before the
// request's expiry translated onto the local clock.
type Scheduler struct {
	ctx        context.Context
	viewer     uuid.UUID
	deps       Deps
	opts       Options
	foreground func() bool

	fired atomic.Bool

	mu          sync.Mutex
	req         domain.Request
	gen         uint64
	localExpiry time.Time
	timer       clockwork.Timer
	ticker      clockwork.Ticker
	stop        chan struct{}
}

func NewScheduler(ctx context.Context, req domain.Request, viewer uuid.UUID, deps Deps, opts Options, foreground func() bool) *Scheduler {
	if foreground == nil {
		foreground = func() bool { return true }
	}
	return &Scheduler{
		ctx:        ctx,
		viewer:     viewer,
		deps:       deps,
		opts:       opts.withDefaults(),
		foreground: foreground,
		req:        req,
	}
}

// Eligible reports whether req may be scheduled for viewer at all.
func Eligible(req domain.Request, viewer uuid.UUID) bool {
	return req.RequesterID == viewer && !req.ExpiresAt.IsZero() && req.IsActive()
}

// Arm starts the timers for the current request. It returns false when the request is not eligible.
func (s *Scheduler) Arm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armLocked()
}

// Rearm swaps in a new version of the request. A change of id, expiry or owner resets the latch.
func (s *Scheduler) Rearm(req domain.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := req.ID != s.req.ID || !req.ExpiresAt.Equal(s.req.ExpiresAt) || req.RequesterID != s.req.RequesterID
	s.req = req
	if !changed {
		if !Eligible(req, s.viewer) {
			s.cancelLocked()
			return false
		}
		return true
	}

	s.cancelLocked()
	s.fired.Store(false)
	return s.armLocked()
}

// Realign recomputes the local deadline after a skew change. The latch is kept.
func (s *Scheduler) Realign() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired.Load() {
		return
	}
	s.cancelLocked()
	s.armLocked()
}

// Check fires if the local deadline has passed. Used on heartbeat ticks and foreground transitions.
func (s *Scheduler) Check() {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.check(gen)
}

func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) Fired() bool {
	return s.fired.Load()
}

func (s *Scheduler) Request() domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

func (s *Scheduler) armLocked() bool {
	if !Eligible(s.req, s.viewer) || s.fired.Load() {
		return false
	}

	s.gen++
	gen := s.gen
	s.localExpiry = s.req.ExpiresAt.Add(-s.deps.Skew.Skew())
	until := s.localExpiry.Sub(s.deps.Clock.Now())

	if until <= s.opts.DueSlack {
		go s.fire(gen)
		return true
	}

	stop := make(chan struct{})
	s.stop = stop
	s.timer = s.deps.Clock.AfterFunc(until, func() { s.fire(gen) })
	s.ticker = s.deps.Clock.NewTicker(s.opts.Heartbeat)
	go s.heartbeat(gen, s.ticker, stop)
	return true
}

func (s *Scheduler) heartbeat(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			if s.foreground() {
				s.check(gen)
			}
		}
	}
}

func (s *Scheduler) check(gen uint64) {
	s.mu.Lock()
	due := gen == s.gen && !s.localExpiry.IsZero() && !s.deps.Clock.Now().Before(s.localExpiry)
	s.mu.Unlock()
	if due {
		s.fire(gen)
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.fired.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	req := s.req
	s.mu.Unlock()

	s.deliver(req)
}

func (s *Scheduler) deliver(req domain.Request) {
	if s.ctx.Err() != nil {
		return
	}

	ok, err := s.deps.Checker.HasRecommendations(s.ctx, req.ID)
	if err != nil {
		log.Printf("expiry: recommendation check failed for request %s: %v", req.ID, err)
		return
	}
	if !ok {
		return
	}

	if !s.deps.Pusher.Push(domain.NewRequestResultsPing(&req)) {
		log.Printf("expiry: results ping for request %s already queued", req.ID)
	}
}

// cancelLocked invalidates every callback armed so far.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}
