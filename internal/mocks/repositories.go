package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cravlr/internal/domain"
)

type RequestRepository struct {
	mock.Mock
}

func (m *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *RequestRepository) ListActiveByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *RequestRepository) ListActiveCreatedSince(ctx context.Context, excludeRequester uuid.UUID, since time.Time) ([]domain.Request, error) {
	args := m.Called(ctx, excludeRequester, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *RequestRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Request, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *RequestRepository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type RecommendationRepository struct {
	mock.Mock
}

func (m *RecommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *RecommendationRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Recommendation, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *RecommendationRepository) CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RecommendationRepository) ListForRequesterSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error) {
	args := m.Called(ctx, requesterID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateResults(ctx context.Context, notif *domain.Notification) (bool, error) {
	args := m.Called(ctx, notif)
	return args.Bool(0), args.Error(1)
}

func (m *NotificationRepository) GetResultsForRequest(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, requestID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *NotificationRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, requesterID, unreadOnly, params)
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *NotificationRepository) ListUnreadByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *NotificationRepository) MarkResultsRead(ctx context.Context, requestID, requesterID uuid.UUID) error {
	args := m.Called(ctx, requestID, requesterID)
	return args.Error(0)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).(int64), args.Error(1)
}

type RequestUserStateRepository struct {
	mock.Mock
}

func (m *RequestUserStateRepository) Get(ctx context.Context, userID, requestID uuid.UUID) (*domain.RequestUserState, error) {
	args := m.Called(ctx, userID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RequestUserState), args.Error(1)
}

func (m *RequestUserStateRepository) Upsert(ctx context.Context, state *domain.RequestUserState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
