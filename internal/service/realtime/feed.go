package realtime

import (
	"context"
	"errors"
	"sync"

	"cravlr/internal/domain"
)

var ErrFeedUnavailable = errors.New("change feed unavailable")

// Feed delivers row changes to subscribers. A subscription's channel is closed when the feed drops.
type Feed interface {
	Subscribe(filters ...domain.ChangeFilter) (*Subscription, error)
}

// Publisher announces row changes written by this process.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// NopPublisher is used when the database itself emits changes.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error { return nil }

type Subscription struct {
	events  chan domain.ChangeEvent
	filters []domain.ChangeFilter
	owner   *broadcaster
	once    sync.Once
}

func (s *Subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *Subscription) Close() {
	s.owner.remove(s)
}

func (s *Subscription) wants(ev domain.ChangeEvent) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

func (s *Subscription) shutdown() {
	s.once.Do(func() { close(s.events) })
}

const subscriptionBuffer = 64

// broadcaster fans one upstream feed out to many subscriptions.
// A subscriber that falls behind is dropped and has to resubscribe.
type broadcaster struct {
	mu   sync.Mutex
	up   bool
	subs map[*Subscription]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[*Subscription]struct{})}
}

func (b *broadcaster) subscribe(filters []domain.ChangeFilter) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.up {
		return nil, ErrFeedUnavailable
	}
	s := &Subscription{
		events:  make(chan domain.ChangeEvent, subscriptionBuffer),
		filters: filters,
		owner:   b,
	}
	b.subs[s] = struct{}{}
	return s, nil
}

func (b *broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		s.shutdown()
	}
}

func (b *broadcaster) publish(ev domain.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			delete(b.subs, s)
			s.shutdown()
		}
	}
}

func (b *broadcaster) setUp(up bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.up = up
	if up {
		return
	}
	for s := range b.subs {
		delete(b.subs, s)
		s.shutdown()
	}
}

func (b *broadcaster) isUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.up
}
