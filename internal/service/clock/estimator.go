package clock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Estimator tracks the offset between the trusted server clock and the local one (server minus local).
type Estimator struct {
	source  TimeSource
	clock   clockwork.Clock
	refresh time.Duration

	mu        sync.RWMutex
	skew      time.Duration
	listeners map[int]func(time.Duration)
	nextID    int
}

func NewEstimator(source TimeSource, clk clockwork.Clock, refresh time.Duration) *Estimator {
	if refresh <= 0 {
		refresh = 15 * time.Minute
	}
	return &Estimator{
		source:    source,
		clock:     clk,
		refresh:   refresh,
		listeners: make(map[int]func(time.Duration)),
	}
}

func (e *Estimator) Skew() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.skew
}

// OnChange registers fn to run after every measurement that moves the skew.
func (e *Estimator) OnChange(fn func(time.Duration)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Measure probes the time source once, assuming the server read the clock at the midpoint of the round trip.
// On failure the previous value is kept.
func (e *Estimator) Measure(ctx context.Context) (time.Duration, error) {
	e.mu.RLock()
	before := e.skew
	e.mu.RUnlock()

	skew, err := e.probe(ctx)
	if err != nil {
		log.Printf("clock: skew measurement failed, keeping %v: %v", before, err)
		return before, err
	}

	e.set(skew, before)
	return skew, nil
}

func (e *Estimator) probe(ctx context.Context) (time.Duration, error) {
	t0 := e.clock.Now()
	server, err := e.source.ServerTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read server time: %w", err)
	}
	t1 := e.clock.Now()

	rtt := t1.Sub(t0)
	localMid := t1.Add(-rtt / 2)
	return server.Sub(localMid), nil
}

func (e *Estimator) set(skew, previous time.Duration) {
	e.mu.Lock()
	e.skew = skew
	fns := make([]func(time.Duration), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	if skew == previous {
		return
	}
	for _, fn := range fns {
		fn(skew)
	}
}

// Run measures immediately, then on every refresh tick drops the stale value and re-measures.
// Listeners only hear about the outcome of a re-measurement, never the intermediate zero.
func (e *Estimator) Run(ctx context.Context) {
	e.Measure(ctx)

	ticker := e.clock.NewTicker(e.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.mu.Lock()
			previous := e.skew
			e.skew = 0
			e.mu.Unlock()

			skew, err := e.probe(ctx)
			if err != nil {
				log.Printf("clock: skew refresh failed, falling back to zero: %v", err)
				skew = 0
			}
			e.set(skew, previous)
		}
	}
}
