package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cravlr/internal/domain"
)

type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	ListActiveByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListActiveCreatedSince(ctx context.Context, excludeRequester uuid.UUID, since time.Time) ([]domain.Request, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Request, error)
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type requestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO food_requests (id, requester_id, food_type, location_city, location_state, response_window, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.RequesterID, req.FoodType, req.LocationCity, req.LocationState,
		req.ResponseWindow, req.Status, req.ExpiresAt,
	).Scan(&req.CreatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	var req domain.Request
	query := `SELECT * FROM food_requests WHERE id = $1`

	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListActiveByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	var reqs []domain.Request
	query := `
		SELECT * FROM food_requests
		WHERE requester_id = $1 AND status = 'active'
		ORDER BY expires_at ASC`

	err := r.db.SelectContext(ctx, &reqs, query, requesterID)
	return reqs, err
}

// ListActiveCreatedSince returns other users' active requests created after since, oldest first.
func (r *requestRepository) ListActiveCreatedSince(ctx context.Context, excludeRequester uuid.UUID, since time.Time) ([]domain.Request, error) {
	var reqs []domain.Request
	query := `
		SELECT * FROM food_requests
		WHERE requester_id <> $1 AND status = 'active' AND created_at > $2
		ORDER BY created_at ASC
		LIMIT 100`

	err := r.db.SelectContext(ctx, &reqs, query, excludeRequester, since)
	return reqs, err
}

func (r *requestRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Request, error) {
	var reqs []domain.Request
	query := `
		SELECT * FROM food_requests
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &reqs, query, now, limit)
	return reqs, err
}

// MarkExpired flips an active request to expired. It reports false when another writer got there first.
func (r *requestRepository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE food_requests
		SET status = 'expired', closed_at = $2
		WHERE id = $1 AND status = 'active'`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
