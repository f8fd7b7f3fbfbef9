package request

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"cravlr/internal/domain"
	"cravlr/internal/repository"
	"cravlr/internal/service/notification"
	"cravlr/internal/service/realtime"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrNotRequester    = errors.New("only the requester can list these recommendations")
	ErrOwnRequest      = errors.New("cannot recommend on your own request")
	ErrRequestClosed   = errors.New("request is no longer taking recommendations")
)

const closeBatchSize = 100

type Service interface {
	Create(ctx context.Context, requesterID uuid.UUID, input domain.CreateRequestInput) (*domain.Request, error)
	// GetRequest returns nil without an error when the request does not exist.
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	ListActive(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListIncoming(ctx context.Context, viewer uuid.UUID, since time.Time) ([]domain.Request, error)

	HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error)
	ListRecommendations(ctx context.Context, userID, requestID uuid.UUID) ([]domain.Recommendation, error)
	ListRecommendationsSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error)
	AddRecommendation(ctx context.Context, recommenderID, requestID uuid.UUID, input domain.CreateRecommendationInput) (*domain.Recommendation, error)

	CloseExpired(ctx context.Context) (int, error)
}

type service struct {
	requestRepo repository.RequestRepository
	recRepo     repository.RecommendationRepository
	notifSvc    notification.Service
	changes     realtime.Publisher
	clock       clockwork.Clock
}

func NewService(
	requestRepo repository.RequestRepository,
	recRepo repository.RecommendationRepository,
	notifSvc notification.Service,
	changes realtime.Publisher,
	clock clockwork.Clock,
) Service {
	return &service{
		requestRepo: requestRepo,
		recRepo:     recRepo,
		notifSvc:    notifSvc,
		changes:     changes,
		clock:       clock,
	}
}

func (s *service) Create(ctx context.Context, requesterID uuid.UUID, input domain.CreateRequestInput) (*domain.Request, error) {
	req := &domain.Request{
		ID:             uuid.New(),
		RequesterID:    requesterID,
		FoodType:       input.FoodType,
		LocationCity:   input.LocationCity,
		LocationState:  input.LocationState,
		ResponseWindow: input.ResponseWindow,
		Status:         domain.RequestActive,
		ExpiresAt:      s.clock.Now().UTC().Add(time.Duration(input.ResponseWindow) * time.Minute),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.publishChange(ctx, domain.TableFoodRequests, domain.ChangeInsert, req, nil)
	return req, nil
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return s.requestRepo.GetByID(ctx, id)
}

func (s *service) ListActive(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	return s.requestRepo.ListActiveByRequester(ctx, requesterID)
}

func (s *service) ListIncoming(ctx context.Context, viewer uuid.UUID, since time.Time) ([]domain.Request, error) {
	return s.requestRepo.ListActiveCreatedSince(ctx, viewer, since)
}

func (s *service) HasRecommendations(ctx context.Context, requestID uuid.UUID) (bool, error) {
	count, err := s.recRepo.CountByRequest(ctx, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count > 0, nil
}

func (s *service) ListRecommendations(ctx context.Context, userID, requestID uuid.UUID) ([]domain.Recommendation, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.RequesterID != userID {
		return nil, ErrNotRequester
	}
	return s.recRepo.ListByRequest(ctx, requestID)
}

func (s *service) ListRecommendationsSince(ctx context.Context, requesterID uuid.UUID, since time.Time) ([]domain.Recommendation, error) {
	return s.recRepo.ListForRequesterSince(ctx, requesterID, since)
}

func (s *service) AddRecommendation(ctx context.Context, recommenderID, requestID uuid.UUID, input domain.CreateRecommendationInput) (*domain.Recommendation, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.RequesterID == recommenderID {
		return nil, ErrOwnRequest
	}
	if !req.IsActive() || req.HasElapsed(s.clock.Now()) {
		return nil, ErrRequestClosed
	}

	rec := &domain.Recommendation{
		ID:             uuid.New(),
		RequestID:      requestID,
		RecommenderID:  recommenderID,
		RestaurantName: input.RestaurantName,
		PlaceID:        input.PlaceID,
	}
	if err := s.recRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create recommendation: %w", err)
	}

	s.publishChange(ctx, domain.TableRecommendations, domain.ChangeInsert, rec, nil)

	if err := s.notifSvc.NotifyNewRecommendation(ctx, req, rec); err != nil {
		log.Printf("Failed to notify requester %s of recommendation %s: %v", req.RequesterID, rec.ID, err)
	}

	return rec, nil
}

// CloseExpired flips every active request past its expiry to expired and announces the ones with results.
func (s *service) CloseExpired(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	due, err := s.requestRepo.ListDue(ctx, now, closeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired requests: %w", err)
	}

	closed := 0
	for i := range due {
		old := due[i]
		ok, err := s.requestRepo.MarkExpired(ctx, old.ID, now)
		if err != nil {
			log.Printf("Failed to expire request %s: %v", old.ID, err)
			continue
		}
		if !ok {
			continue
		}
		closed++

		updated := old
		updated.Status = domain.RequestExpired
		updated.ClosedAt = &now
		s.publishChange(ctx, domain.TableFoodRequests, domain.ChangeUpdate, &updated, &old)

		count, err := s.recRepo.CountByRequest(ctx, old.ID)
		if err != nil {
			log.Printf("Failed to count recommendations for request %s: %v", old.ID, err)
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notifSvc.NotifyResultsReady(ctx, &updated, int(count)); err != nil {
			log.Printf("Failed to announce results for request %s: %v", old.ID, err)
		}
	}

	return closed, nil
}

func (s *service) publishChange(ctx context.Context, table string, typ domain.ChangeType, record, old any) {
	ev, err := domain.NewChangeEvent(table, typ, record, old)
	if err != nil {
		log.Printf("Failed to build change event for %s: %v", table, err)
		return
	}
	if err := s.changes.Publish(ctx, ev); err != nil {
		log.Printf("Failed to publish change event for %s: %v", table, err)
	}
}
