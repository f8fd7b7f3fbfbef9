package presenter

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"cravlr/internal/domain"
)

var ErrNothingShowing = errors.New("no popup is showing")

type Queue interface {
	Current() (domain.Ping, bool)
	Dismiss(key domain.PingKey) bool
}

type Decider interface {
	AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error)
	IgnoreRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error)
	MarkResultsRead(ctx context.Context, requesterID, requestID uuid.UUID) error
}

// Presenter relays the viewer's answer to the showing popup, then dismisses it.
// A failed call leaves the popup showing so the viewer can retry.
type Presenter struct {
	viewer  uuid.UUID
	queue   Queue
	decider Decider
}

func New(viewer uuid.UUID, queue Queue, decider Decider) *Presenter {
	return &Presenter{viewer: viewer, queue: queue, decider: decider}
}

func (p *Presenter) Current() (domain.Ping, bool) {
	return p.queue.Current()
}

func (p *Presenter) Accept(ctx context.Context) (domain.Ping, error) {
	return p.act(ctx, true)
}

func (p *Presenter) Ignore(ctx context.Context) (domain.Ping, error) {
	return p.act(ctx, false)
}

// Dismiss closes the showing popup without telling the backend anything.
func (p *Presenter) Dismiss() (domain.Ping, error) {
	ping, ok := p.queue.Current()
	if !ok {
		return domain.Ping{}, ErrNothingShowing
	}
	p.queue.Dismiss(ping.Key())
	return ping, nil
}

func (p *Presenter) act(ctx context.Context, accept bool) (domain.Ping, error) {
	ping, ok := p.queue.Current()
	if !ok {
		return domain.Ping{}, ErrNothingShowing
	}

	requestID := RequestIDOf(ping)
	var err error
	switch ping.Type {
	case domain.PingRequestResults:
		// viewing and ignoring results both just clear the unread row
		err = p.decider.MarkResultsRead(ctx, p.viewer, requestID)
	case domain.PingNewRequest:
		if accept {
			_, err = p.decider.AcceptRequest(ctx, p.viewer, requestID)
		} else {
			_, err = p.decider.IgnoreRequest(ctx, p.viewer, requestID)
		}
	case domain.PingRecommendation:
		if markErr := p.decider.MarkResultsRead(ctx, p.viewer, requestID); markErr != nil {
			log.Printf("Failed to mark results read for request %s: %v", requestID, markErr)
		}
	}
	if err != nil {
		log.Printf("Failed to handle %s popup %s for user %s: %v", ping.Type, ping.ID, p.viewer, err)
		return ping, fmt.Errorf("failed to handle %s popup: %w", ping.Type, err)
	}

	p.queue.Dismiss(ping.Key())
	return ping, nil
}

// RequestIDOf returns the request a ping refers to.
func RequestIDOf(p domain.Ping) uuid.UUID {
	switch payload := p.Payload.(type) {
	case domain.RequestResultsPayload:
		return payload.RequestID
	case domain.NewRequestPayload:
		return payload.RequestID
	case domain.RecommendationPayload:
		return payload.RequestID
	}
	id, _ := uuid.Parse(p.ID)
	return id
}
