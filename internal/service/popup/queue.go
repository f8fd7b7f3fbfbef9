package popup

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"cravlr/internal/domain"
)

type State string

const (
	StateEmpty   State = "empty"
	StatePending State = "pending"
	StateShowing State = "showing"
)

// Snapshot is a read-only view of the queue. Version increases with every change.
type Snapshot struct {
	State   State        `json:"state"`
	Current *domain.Ping `json:"current,omitempty"`
	Pending int          `json:"pending"`
	Version uint64       `json:"version"`
}

type Options struct {
	AdvanceDelay  time.Duration
	SeenRetention time.Duration
}

// Queue holds at most one showing ping and a FIFO of pending ones, unique by (id, type).
type Queue struct {
	clock clockwork.Clock
	opts  Options

	mu      sync.Mutex
	active  *domain.Ping
	pending []domain.Ping
	seen    map[domain.PingKey]time.Time
	advance clockwork.Timer
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewQueue(clk clockwork.Clock, opts Options) *Queue {
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = 500 * time.Millisecond
	}
	return &Queue{
		clock: clk,
		opts:  opts,
		seen:  make(map[domain.PingKey]time.Time),
		subs:  make(map[int]func(Snapshot)),
	}
}

// Push enqueues p and reports whether it was accepted. The clear-all sentinel is always accepted.
func (q *Queue) Push(p domain.Ping) bool {
	if p.IsClearAll() {
		q.clear()
		return true
	}

	q.mu.Lock()
	now := q.clock.Now()
	key := p.Key()
	if q.containsLocked(key) || q.recentlySeenLocked(key, now) {
		q.mu.Unlock()
		return false
	}

	p.EnqueuedAt = now
	if q.opts.SeenRetention > 0 {
		q.seen[key] = now
	}

	if q.active == nil && len(q.pending) == 0 {
		q.stopAdvanceLocked()
		q.active = &p
	} else {
		q.pending = append(q.pending, p)
	}
	snap := q.snapshotLocked(true)
	q.mu.Unlock()

	q.publish(snap)
	return true
}

// ShowNext promotes the head of the pending list when nothing is showing.
func (q *Queue) ShowNext() (domain.Ping, bool) {
	q.mu.Lock()
	if q.active != nil || len(q.pending) == 0 {
		q.mu.Unlock()
		return domain.Ping{}, false
	}

	next := q.pending[0]
	q.pending = q.pending[1:]
	q.active = &next
	snap := q.snapshotLocked(true)
	q.mu.Unlock()

	q.publish(snap)
	return next, true
}

// DismissCurrent hides the showing ping and schedules the next one after the advance delay.
func (q *Queue) DismissCurrent() {
	q.dismiss(nil)
}

// Dismiss hides the showing ping only if it is still the one identified by key.
func (q *Queue) Dismiss(key domain.PingKey) bool {
	return q.dismiss(&key)
}

func (q *Queue) dismiss(key *domain.PingKey) bool {
	q.mu.Lock()
	if q.active == nil || (key != nil && q.active.Key() != *key) {
		q.mu.Unlock()
		return false
	}

	q.active = nil
	q.stopAdvanceLocked()
	if len(q.pending) > 0 {
		q.advance = q.clock.AfterFunc(q.opts.AdvanceDelay, func() {
			q.ShowNext()
		})
	}
	snap := q.snapshotLocked(true)
	q.mu.Unlock()

	q.publish(snap)
	return true
}

func (q *Queue) Current() (domain.Ping, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return domain.Ping{}, false
	}
	return *q.active, true
}

func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked(false)
}

// Subscribe calls fn with the current snapshot and again after every change.
func (q *Queue) Subscribe(fn func(Snapshot)) func() {
	q.subMu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.subMu.Unlock()

	fn(q.Snapshot())

	return func() {
		q.subMu.Lock()
		delete(q.subs, id)
		q.subMu.Unlock()
	}
}

func (q *Queue) clear() {
	q.mu.Lock()
	q.stopAdvanceLocked()
	q.active = nil
	q.pending = nil
	snap := q.snapshotLocked(true)
	q.mu.Unlock()

	q.publish(snap)
}

func (q *Queue) containsLocked(key domain.PingKey) bool {
	if q.active != nil && q.active.Key() == key {
		return true
	}
	for _, p := range q.pending {
		if p.Key() == key {
			return true
		}
	}
	return false
}

func (q *Queue) recentlySeenLocked(key domain.PingKey, now time.Time) bool {
	if q.opts.SeenRetention <= 0 {
		return false
	}
	for k, at := range q.seen {
		if now.Sub(at) >= q.opts.SeenRetention {
			delete(q.seen, k)
		}
	}
	_, ok := q.seen[key]
	return ok
}

func (q *Queue) stopAdvanceLocked() {
	if q.advance != nil {
		q.advance.Stop()
		q.advance = nil
	}
}

func (q *Queue) snapshotLocked(bump bool) Snapshot {
	if bump {
		q.version++
	}
	snap := Snapshot{Pending: len(q.pending), Version: q.version}
	switch {
	case q.active != nil:
		cur := *q.active
		snap.State = StateShowing
		snap.Current = &cur
	case len(q.pending) > 0:
		snap.State = StatePending
	default:
		snap.State = StateEmpty
	}
	return snap
}

func (q *Queue) publish(snap Snapshot) {
	q.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(q.subs))
	for _, fn := range q.subs {
		fns = append(fns, fn)
	}
	q.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
