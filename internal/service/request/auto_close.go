package request

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"cravlr/internal/service/lock"
)

const autoCloseLockKey = "auto-close-requests"

// AutoCloser runs CloseExpired on an interval. The Redis lock keeps it to one instance per tick.
type AutoCloser struct {
	svc      Service
	locker   lock.Locker
	clock    clockwork.Clock
	interval time.Duration
	lockTTL  time.Duration
}

func NewAutoCloser(svc Service, locker lock.Locker, clock clockwork.Clock, interval, lockTTL time.Duration) *AutoCloser {
	if interval <= 0 {
		interval = time.Minute
	}
	if lockTTL <= 0 || lockTTL >= interval {
		lockTTL = interval - interval/6
	}
	return &AutoCloser{
		svc:      svc,
		locker:   locker,
		clock:    clock,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

func (a *AutoCloser) Run(ctx context.Context) {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	a.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			a.tick(ctx)
		}
	}
}

func (a *AutoCloser) tick(ctx context.Context) {
	closed, err := a.RunOnce(ctx)
	if err != nil {
		log.Printf("Auto-close run failed: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("Auto-close expired %d requests", closed)
	}
}

// RunOnce reports zero without an error when another instance holds the lock.
func (a *AutoCloser) RunOnce(ctx context.Context) (int, error) {
	lk, err := a.locker.Acquire(ctx, autoCloseLockKey, a.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := lk.Release(context.Background()); err != nil {
			log.Printf("Failed to release auto-close lock: %v", err)
		}
	}()

	return a.svc.CloseExpired(ctx)
}
