package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRequestState string

const (
	StateAccepted UserRequestState = "accepted"
	StateIgnored  UserRequestState = "ignored"
)

type RequestUserState struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	RequestID uuid.UUID        `json:"request_id" db:"request_id"`
	State     UserRequestState `json:"state" db:"state"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

type DecisionAction string

const (
	ActionAccept DecisionAction = "accept"
	ActionIgnore DecisionAction = "ignore"
)

type DecisionInput struct {
	Action DecisionAction `json:"action" validate:"required,oneof=accept ignore"`
}

// DecisionResult mirrors what the accept/ignore endpoint reports back.
type DecisionResult struct {
	Action    string            `json:"action"`
	RequestID uuid.UUID         `json:"request_id"`
	State     *RequestUserState `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
}

func (a DecisionAction) State() UserRequestState {
	if a == ActionAccept {
		return StateAccepted
	}
	return StateIgnored
}
