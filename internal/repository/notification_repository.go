package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cravlr/internal/domain"
)

type NotificationRepository interface {
	// CreateResults inserts the results row for (request, requester). It reports false if one already exists.
	CreateResults(ctx context.Context, notif *domain.Notification) (bool, error)
	GetResultsForRequest(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error)
	ListUnreadByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error)
	MarkResultsRead(ctx context.Context, requestID, requesterID uuid.UUID) error
	CountUnread(ctx context.Context, requesterID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateResults(ctx context.Context, notif *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, request_id, requester_id, type, title, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id, requester_id, type) DO NOTHING
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.RequestID, notif.RequesterID, notif.Type, notif.Title, notif.Message,
	).Scan(&notif.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *notificationRepository) GetResultsForRequest(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `
		SELECT * FROM notifications
		WHERE request_id = $1 AND requester_id = $2 AND type = 'request_results'`

	err := r.db.GetContext(ctx, &notif, query, requestID, requesterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	filter := `WHERE requester_id = $1`
	if unreadOnly {
		filter += ` AND read_at IS NULL`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications `+filter, requesterID); err != nil {
		return nil, 0, err
	}

	var notifications []domain.Notification
	query := `SELECT * FROM notifications ` + filter + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &notifications, query, requesterID, params.PageSize, params.Offset())
	return notifications, total, err
}

func (r *notificationRepository) ListUnreadByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error) {
	var notifications []domain.Notification
	query := `
		SELECT * FROM notifications
		WHERE requester_id = $1 AND read_at IS NULL
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &notifications, query, requesterID)
	return notifications, err
}

func (r *notificationRepository) MarkResultsRead(ctx context.Context, requestID, requesterID uuid.UUID) error {
	query := `
		UPDATE notifications SET read_at = NOW()
		WHERE request_id = $1 AND requester_id = $2 AND read_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, requestID, requesterID)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE requester_id = $1 AND read_at IS NULL`
	err := r.db.GetContext(ctx, &count, query, requesterID)
	return count, err
}
