package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"

	"cravlr/internal/domain"
	"cravlr/internal/repository"
	"cravlr/internal/service/email"
	"cravlr/internal/service/push"
	"cravlr/internal/service/realtime"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrRequestInactive = errors.New("request is no longer active")
	ErrRequestExpired  = errors.New("request has expired")
	ErrForbidden       = errors.New("cannot view results for others' requests")
	ErrInvalidAction   = errors.New("action must be accept or ignore")
)

const ActionViewResults = "view_results"

type Service interface {
	Decide(ctx context.Context, userID, requestID uuid.UUID, action domain.DecisionAction) (*domain.DecisionResult, error)
	AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error)
	IgnoreRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error)
	MarkResultsRead(ctx context.Context, requesterID, requestID uuid.UUID) error

	GetResults(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error)
	ListUnread(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error)
	List(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	GetUnreadCount(ctx context.Context, requesterID uuid.UUID) (int64, error)

	NotifyResultsReady(ctx context.Context, req *domain.Request, count int) error
	NotifyNewRecommendation(ctx context.Context, req *domain.Request, rec *domain.Recommendation) error
}

type service struct {
	notifRepo   repository.NotificationRepository
	stateRepo   repository.RequestUserStateRepository
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
	emailSvc    email.Service
	pusher      push.Publisher
	changes     realtime.Publisher
	clock       clockwork.Clock
}

func NewService(
	notifRepo repository.NotificationRepository,
	stateRepo repository.RequestUserStateRepository,
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
	emailSvc email.Service,
	pusher push.Publisher,
	changes realtime.Publisher,
	clock clockwork.Clock,
) Service {
	return &service{
		notifRepo:   notifRepo,
		stateRepo:   stateRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		emailSvc:    emailSvc,
		pusher:      pusher,
		changes:     changes,
		clock:       clock,
	}
}

func (s *service) Decide(ctx context.Context, userID, requestID uuid.UUID, action domain.DecisionAction) (*domain.DecisionResult, error) {
	if action != domain.ActionAccept && action != domain.ActionIgnore {
		return nil, ErrInvalidAction
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	now := s.clock.Now()

	// Accepting a finished request is the requester opening its results.
	// The auto-close job may not have recorded the expiry yet.
	if action == domain.ActionAccept {
		if req.IsTerminal() && req.RequesterID != userID {
			return nil, ErrForbidden
		}
		if req.RequesterID == userID && (req.IsTerminal() || req.HasElapsed(now)) {
			return &domain.DecisionResult{
				Action:    ActionViewResults,
				RequestID: requestID,
				Message:   "Results viewed",
			}, nil
		}
	}

	if !req.IsActive() {
		return nil, ErrRequestInactive
	}
	if req.HasElapsed(now) {
		return nil, ErrRequestExpired
	}

	existing, err := s.stateRepo.Get(ctx, userID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request state: %w", err)
	}
	if existing != nil && existing.State == action.State() {
		return &domain.DecisionResult{
			Action:    string(action),
			RequestID: requestID,
			State:     existing,
			Message:   "State already set",
		}, nil
	}

	state := &domain.RequestUserState{
		UserID:    userID,
		RequestID: requestID,
		State:     action.State(),
	}
	if err := s.stateRepo.Upsert(ctx, state); err != nil {
		if isUniqueViolation(err) {
			return &domain.DecisionResult{
				Action:    string(action),
				RequestID: requestID,
				Message:   "Already processed",
			}, nil
		}
		return nil, fmt.Errorf("failed to update request state: %w", err)
	}

	return &domain.DecisionResult{
		Action:    string(action),
		RequestID: requestID,
		State:     state,
	}, nil
}

func (s *service) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error) {
	return s.Decide(ctx, userID, requestID, domain.ActionAccept)
}

func (s *service) IgnoreRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.DecisionResult, error) {
	return s.Decide(ctx, userID, requestID, domain.ActionIgnore)
}

func (s *service) MarkResultsRead(ctx context.Context, requesterID, requestID uuid.UUID) error {
	if err := s.notifRepo.MarkResultsRead(ctx, requestID, requesterID); err != nil {
		return fmt.Errorf("failed to mark results read: %w", err)
	}
	return nil
}

func (s *service) GetResults(ctx context.Context, requestID, requesterID uuid.UUID) (*domain.Notification, error) {
	return s.notifRepo.GetResultsForRequest(ctx, requestID, requesterID)
}

func (s *service) ListUnread(ctx context.Context, requesterID uuid.UUID) ([]domain.Notification, error) {
	return s.notifRepo.ListUnreadByRequester(ctx, requesterID)
}

func (s *service) List(ctx context.Context, requesterID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.Validate()
	notifications, total, err := s.notifRepo.ListByRequester(ctx, requesterID, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	return domain.NewPaginatedResponse(notifications, params, total), nil
}

func (s *service) GetUnreadCount(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(ctx, requesterID)
}

// NotifyResultsReady writes the results row once per request and fans it out to push and email.
func (s *service) NotifyResultsReady(ctx context.Context, req *domain.Request, count int) error {
	payload := domain.RequestResultsPayload{RequestID: req.ID, FoodType: req.FoodType}
	notif := &domain.Notification{
		ID:          uuid.New(),
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Type:        domain.NotifRequestResults,
		Title:       payload.Title(),
		Message:     payload.Message(),
	}

	created, err := s.notifRepo.CreateResults(ctx, notif)
	if err != nil {
		return fmt.Errorf("failed to create results notification: %w", err)
	}
	if !created {
		return nil
	}

	s.publishChange(ctx, domain.TableNotifications, notif)

	job := push.Job{
		UserID:    req.RequesterID,
		RequestID: req.ID,
		Kind:      string(domain.PingRequestResults),
		Title:     payload.Title(),
		Body:      payload.Message(),
		Link:      payload.CTA().To,
	}
	if err := s.pusher.Publish(ctx, job); err != nil {
		log.Printf("Failed to queue results push for request %s: %v", req.ID, err)
	}

	go func() {
		user, err := s.userRepo.GetByID(context.Background(), req.RequesterID)
		if err != nil || user == nil || !user.EmailResults {
			return
		}
		if err := s.emailSvc.SendResultsReadyEmail(context.Background(), user.Email, user.Name(), req.FoodType, req.ID, count); err != nil {
			log.Printf("Failed to send results email to %s: %v", user.Email, err)
		}
	}()

	return nil
}

func (s *service) NotifyNewRecommendation(ctx context.Context, req *domain.Request, rec *domain.Recommendation) error {
	payload := domain.RecommendationPayload{
		RequestID:        req.ID,
		RecommendationID: rec.ID,
		FoodType:         req.FoodType,
		RestaurantName:   rec.RestaurantName,
	}
	job := push.Job{
		UserID:    req.RequesterID,
		RequestID: req.ID,
		Kind:      string(domain.PingRecommendation),
		Title:     payload.Title(),
		Body:      payload.Message(),
		Link:      payload.CTA().To,
	}
	if err := s.pusher.Publish(ctx, job); err != nil {
		return fmt.Errorf("failed to queue recommendation push: %w", err)
	}

	go func() {
		user, err := s.userRepo.GetByID(context.Background(), req.RequesterID)
		if err != nil || user == nil || !user.EmailResults {
			return
		}
		if err := s.emailSvc.SendNewRecommendationEmail(context.Background(), user.Email, user.Name(), req.FoodType, rec.RestaurantName, req.ID); err != nil {
			log.Printf("Failed to send recommendation email to %s: %v", user.Email, err)
		}
	}()

	return nil
}

func (s *service) publishChange(ctx context.Context, table string, record any) {
	ev, err := domain.NewChangeEvent(table, domain.ChangeInsert, record, nil)
	if err != nil {
		log.Printf("Failed to build change event for %s: %v", table, err)
		return
	}
	if err := s.changes.Publish(ctx, ev); err != nil {
		log.Printf("Failed to publish change event for %s: %v", table, err)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
