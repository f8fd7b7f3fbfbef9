package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestActive  RequestStatus = "active"
	RequestExpired RequestStatus = "expired"
	RequestClosed  RequestStatus = "closed"
)

// Request is a single craving. ExpiresAt is set once by the server and never changes.
type Request struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	RequesterID    uuid.UUID     `json:"requester_id" db:"requester_id"`
	FoodType       string        `json:"food_type" db:"food_type"`
	LocationCity   string        `json:"location_city" db:"location_city"`
	LocationState  string        `json:"location_state" db:"location_state"`
	ResponseWindow int           `json:"response_window" db:"response_window"`
	Status         RequestStatus `json:"status" db:"status"`
	ExpiresAt      time.Time     `json:"expires_at" db:"expires_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

type CreateRequestInput struct {
	FoodType       string `json:"food_type" validate:"required,min=2,max=100"`
	LocationCity   string `json:"location_city" validate:"required"`
	LocationState  string `json:"location_state" validate:"required"`
	ResponseWindow int    `json:"response_window" validate:"required,min=1,max=1440"`
}

func (r *Request) IsActive() bool {
	return r.Status == RequestActive
}

// IsTerminal reports whether the request has left the active state.
func (r *Request) IsTerminal() bool {
	return r.Status == RequestExpired || r.Status == RequestClosed
}

func (r *Request) HasElapsed(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CollectionEndsAt is when recommenders stop being asked about the request.
func (r *Request) CollectionEndsAt() time.Time {
	window := r.ResponseWindow
	if window <= 0 {
		window = 1
	}
	return r.CreatedAt.Add(time.Duration(window) * time.Minute)
}

func (r *Request) Location() string {
	if r.LocationState == "" {
		return r.LocationCity
	}
	return r.LocationCity + ", " + r.LocationState
}

// CanTransitionTo enforces the forward-only status lifecycle.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestActive:
		return next == RequestExpired || next == RequestClosed
	case RequestExpired:
		return next == RequestClosed
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyQuick    Urgency = "quick"
	UrgencySoon     Urgency = "soon"
	UrgencyExtended Urgency = "extended"
)

func UrgencyFor(responseWindow int) Urgency {
	switch {
	case responseWindow <= 15:
		return UrgencyQuick
	case responseWindow <= 60:
		return UrgencySoon
	default:
		return UrgencyExtended
	}
}
