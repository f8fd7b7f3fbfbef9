package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cravlr/internal/domain"
)

type RequestUserStateRepository interface {
	Get(ctx context.Context, userID, requestID uuid.UUID) (*domain.RequestUserState, error)
	Upsert(ctx context.Context, state *domain.RequestUserState) error
}

type requestUserStateRepository struct {
	db *sqlx.DB
}

func NewRequestUserStateRepository(db *sqlx.DB) RequestUserStateRepository {
	return &requestUserStateRepository{db: db}
}

func (r *requestUserStateRepository) Get(ctx context.Context, userID, requestID uuid.UUID) (*domain.RequestUserState, error) {
	var state domain.RequestUserState
	query := `SELECT * FROM request_user_state WHERE user_id = $1 AND request_id = $2`

	err := r.db.GetContext(ctx, &state, query, userID, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *requestUserStateRepository) Upsert(ctx context.Context, state *domain.RequestUserState) error {
	query := `
		INSERT INTO request_user_state (id, user_id, request_id, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, request_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		state.ID, state.UserID, state.RequestID, state.State,
	).Scan(&state.ID, &state.CreatedAt, &state.UpdatedAt)
}
