package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	User             UserRepository
	Request          RequestRepository
	Recommendation   RecommendationRepository
	Notification     NotificationRepository
	RequestUserState RequestUserStateRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:             NewUserRepository(db),
		Request:          NewRequestRepository(db),
		Recommendation:   NewRecommendationRepository(db),
		Notification:     NewNotificationRepository(db),
		RequestUserState: NewRequestUserStateRepository(db),
	}
}
