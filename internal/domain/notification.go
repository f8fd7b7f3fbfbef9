package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the authoritative per-requester record that a request has results.
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	RequestID   uuid.UUID        `json:"request_id" db:"request_id"`
	RequesterID uuid.UUID        `json:"requester_id" db:"requester_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	ReadAt      *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

type NotificationType string

const (
	NotifRequestResults NotificationType = "request_results"
)

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
