package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"cravlr/internal/domain"
)

const PostgresChannel = "row_changes"

// PostgresFeed relays NOTIFY payloads written by the row_changes trigger.
type PostgresFeed struct {
	*broadcaster
	listener *pq.Listener
}

func NewPostgresFeed(dsn string) (*PostgresFeed, error) {
	f := &PostgresFeed{broadcaster: newBroadcaster()}
	f.listener = pq.NewListener(dsn, time.Second, 30*time.Second, f.onEvent)

	if err := f.listener.Listen(PostgresChannel); err != nil {
		f.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", PostgresChannel, err)
	}
	f.setUp(true)
	return f, nil
}

func (f *PostgresFeed) Subscribe(filters ...domain.ChangeFilter) (*Subscription, error) {
	return f.subscribe(filters)
}

func (f *PostgresFeed) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected:
		log.Printf("realtime: postgres listener disconnected: %v", err)
		f.setUp(false)
	case pq.ListenerEventReconnected:
		log.Println("realtime: postgres listener reconnected")
		f.setUp(true)
	case pq.ListenerEventConnectionAttemptFailed:
		log.Printf("realtime: postgres listener reconnect failed: %v", err)
	}
}

// Run pumps notifications until ctx is done.
func (f *PostgresFeed) Run(ctx context.Context) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-f.listener.Notify:
			// nil after a reconnect; subscribers already dropped and will catch up by polling
			if n == nil {
				continue
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("realtime: dropping malformed notification: %v", err)
				continue
			}
			f.publish(ev)
		case <-ping.C:
			go f.listener.Ping()
		}
	}
}

func (f *PostgresFeed) Close() error {
	f.setUp(false)
	return f.listener.Close()
}
