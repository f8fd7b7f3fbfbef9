package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cravlr/internal/domain"
	"cravlr/internal/service/auth"
	"cravlr/internal/service/push"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendResultsReadyEmail(ctx context.Context, toEmail, name, foodType string, requestID uuid.UUID, count int) error {
	args := m.Called(ctx, toEmail, name, foodType, requestID, count)
	return args.Error(0)
}

func (m *EmailService) SendNewRecommendationEmail(ctx context.Context, toEmail, name, foodType, restaurantName string, requestID uuid.UUID) error {
	args := m.Called(ctx, toEmail, name, foodType, restaurantName, requestID)
	return args.Error(0)
}

type PushPublisher struct {
	mock.Mock
}

func (m *PushPublisher) Publish(ctx context.Context, job push.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type ChangePublisher struct {
	mock.Mock
}

func (m *ChangePublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) Decide(ctx context.Context, userID, requestID uuid.UUID, action domain.DecisionAction) (*domain.DecisionResult, error) {
	args := m.Called(ctx, userID, requestID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DecisionResult), args.Error(1)
}

func (m *NotificationService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error) {
	args := m.Called(ctx, userID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DecisionResult), args.Error(1)
}

func (m *NotificationService) IgnoreRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error) {
	args := m.Called(ctx, userID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DecisionResult), args.Error(1)
}

func (m *NotificationService) MarkResultsRead(ctx context.Context, requesterID, requestID uuid.UUID) error {
	args := m.Called(ctx, requesterID, requestID)
	return args.Error(0)
}

func (m *NotificationService) GetResults(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, requestID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *NotificationService) ListUnread(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *NotificationService) List(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	args := m.Called(ctx, requesterID, unreadOnly, params)
	return args.Get(0).(domain.PaginatedResponse[domain.Notification]), args.Error(1)
}

func (m *NotificationService) GetUnreadCount(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationService) NotifyResultsReady(ctx context.Context, req *domain.Request, count int) error {
	args := m.Called(ctx, req, count)
	return args.Error(0)
}

func (m *NotificationService) NotifyNewRecommendation(ctx context.Context, req *domain.Request, rec *domain.Recommendation) error {
	args := m.Called(ctx, req, rec)
	return args.Error(0)
}

type RequestService struct {
	mock.Mock
}

func (m *RequestService) Create(ctx context.Context, requesterID uuid.UUID, input domain.CreateRequestInput) (*domain.Request, error) {
	args := m.Called(ctx, requesterID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *RequestService) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *RequestService) ListActive(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *RequestService) ListIncoming(ctx context.Context, viewer uuid.UUID, since time.Time) ([]domain.Request, error) {
	args := m.Called(ctx, viewer, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *RequestService) HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error) {
	args := m.Called(ctx, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *RequestService) ListRecommendations(ctx context.Context, userID, requestID uuid.UUID) ([]domain.Recommendation, error) {
	args := m.Called(ctx, userID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *RequestService) ListRecommendationsSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error) {
	args := m.Called(ctx, requesterID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *RequestService) AddRecommendation(ctx context.Context, recommenderID, requestID uuid.UUID, input domain.CreateRecommendationInput) (*domain.Recommendation, error) {
	args := m.Called(ctx, recommenderID, requestID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recommendation), args.Error(1)
}

func (m *RequestService) CloseExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type AuthService struct {
	mock.Mock
}

func (m *AuthService) ValidateAccessToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
