package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cravlr/internal/domain"
)

type RecommendationRepository interface {
	Create(ctx context.Context, rec *domain.Recommendation) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Recommendation, error)
	CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
	ListForRequesterSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error)
}

type recommendationRepository struct {
	db *sqlx.DB
}

func NewRecommendationRepository(db *sqlx.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	query := `
		INSERT INTO recommendations (id, request_id, recommender_id, restaurant_name, place_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.RequestID, rec.RecommenderID, rec.RestaurantName, rec.PlaceID,
	).Scan(&rec.CreatedAt)
}

func (r *recommendationRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Recommendation, error) {
	var recs []domain.Recommendation
	query := `
		SELECT * FROM recommendations
		WHERE request_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &recs, query, requestID)
	return recs, err
}

func (r *recommendationRepository) CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM recommendations WHERE request_id = $1`
	err := r.db.GetContext(ctx, &count, query, requestID)
	return count, err
}

func (r *recommendationRepository) ListForRequesterSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error) {
	var recs []domain.Recommendation
	query := `
		SELECT rec.* FROM recommendations rec
		JOIN food_requests fr ON fr.id = rec.request_id
		WHERE fr.requester_id = $1 AND rec.created_at > $2
		ORDER BY rec.created_at ASC`

	err := r.db.SelectContext(ctx, &recs, query, requesterID, since)
	return recs, err
}
