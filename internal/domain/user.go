package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the profile slice the delivery pipeline needs; accounts live with the auth provider.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	EmailResults bool      `json:"email_results" db:"email_results"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
