package domain

import (
	"time"

	"github.com/google/uuid"
)

type Recommendation struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RequestID      uuid.UUID `json:"request_id" db:"request_id"`
	RecommenderID  uuid.UUID `json:"recommender_id" db:"recommender_id"`
	RestaurantName string    `json:"restaurant_name" db:"restaurant_name"`
	PlaceID        *string   `json:"place_id,omitempty" db:"place_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type CreateRecommendationInput struct {
	RestaurantName string  `json:"restaurant_name" validate:"required,min=1,max=200"`
	PlaceID        *string `json:"place_id,omitempty" validate:"omitempty,max=255"`
}
