package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PingType string

const (
	PingNewRequest     PingType = "new_request"
	PingRequestResults PingType = "request_results"
	PingRecommendation PingType = "recommendation"
)

// ClearAllPingID is reserved: a ping carrying it empties the popup queue instead of being shown.
const ClearAllPingID = "CLEAR_ALL"

type CTA struct {
	Label string `json:"label"`
	To    string `json:"to"`
}

// Payload is the closed set of display variants a ping can carry.
type Payload interface {
	Kind() PingType
	Title() string
	Message() string
	CTA() *CTA
}

type NewRequestPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	FoodType  string    `json:"food_type"`
	Location  string    `json:"location"`
	Urgency   Urgency   `json:"urgency"`
}

func (NewRequestPayload) Kind() PingType { return PingNewRequest }

func (p NewRequestPayload) Title() string { return "New craving nearby" }

func (p NewRequestPayload) Message() string {
	if p.Location == "" {
		return fmt.Sprintf("Someone is craving %s.", p.FoodType)
	}
	return fmt.Sprintf("Someone in %s is craving %s.", p.Location, p.FoodType)
}

func (p NewRequestPayload) CTA() *CTA {
	return &CTA{Label: "Recommend", To: fmt.Sprintf("/requests/%s", p.RequestID)}
}

type RequestResultsPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	FoodType  string    `json:"food_type"`
}

func (RequestResultsPayload) Kind() PingType { return PingRequestResults }

func (p RequestResultsPayload) Title() string { return "Time's up! 🎉" }

func (p RequestResultsPayload) Message() string {
	return fmt.Sprintf("Your %s results are ready.", p.FoodType)
}

func (p RequestResultsPayload) CTA() *CTA {
	return &CTA{Label: "View Results", To: fmt.Sprintf("/requests/%s/results", p.RequestID)}
}

type RecommendationPayload struct {
	RequestID        uuid.UUID `json:"request_id"`
	RecommendationID uuid.UUID `json:"recommendation_id"`
	FoodType         string    `json:"food_type"`
	RestaurantName   string    `json:"restaurant_name"`
}

func (RecommendationPayload) Kind() PingType { return PingRecommendation }

func (p RecommendationPayload) Title() string { return "New recommendation" }

func (p RecommendationPayload) Message() string {
	return fmt.Sprintf("%s was suggested for your %s craving.", p.RestaurantName, p.FoodType)
}

func (p RecommendationPayload) CTA() *CTA {
	return &CTA{Label: "View", To: fmt.Sprintf("/requests/%s/results", p.RequestID)}
}

// PingKey is the identity the popup queue deduplicates on.
type PingKey struct {
	ID   string
	Type PingType
}

type Ping struct {
	ID         string
	Type       PingType
	Payload    Payload
	EnqueuedAt time.Time
}

func NewPing(id string, payload Payload) Ping {
	return Ping{ID: id, Type: payload.Kind(), Payload: payload}
}

func NewRequestResultsPing(req *Request) Ping {
	return NewPing(req.ID.String(), RequestResultsPayload{RequestID: req.ID, FoodType: req.FoodType})
}

func NewRequestPing(req *Request) Ping {
	return NewPing(req.ID.String(), NewRequestPayload{
		RequestID: req.ID,
		FoodType:  req.FoodType,
		Location:  req.Location(),
		Urgency:   UrgencyFor(req.ResponseWindow),
	})
}

func NewRecommendationPing(req *Request, rec *Recommendation) Ping {
	return NewPing(rec.ID.String(), RecommendationPayload{
		RequestID:        req.ID,
		RecommendationID: rec.ID,
		FoodType:         req.FoodType,
		RestaurantName:   rec.RestaurantName,
	})
}

func ClearAllPing() Ping {
	return Ping{ID: ClearAllPingID}
}

func (p Ping) IsClearAll() bool {
	return p.ID == ClearAllPingID
}

func (p Ping) Key() PingKey {
	return PingKey{ID: p.ID, Type: p.Type}
}

type pingJSON struct {
	ID         string    `json:"id"`
	Type       PingType  `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	CTA        *CTA      `json:"cta,omitempty"`
	Data       Payload   `json:"data,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (p Ping) MarshalJSON() ([]byte, error) {
	out := pingJSON{
		ID:         p.ID,
		Type:       p.Type,
		EnqueuedAt: p.EnqueuedAt,
	}
	if p.Payload != nil {
		out.Title = p.Payload.Title()
		out.Message = p.Payload.Message()
		out.CTA = p.Payload.CTA()
		out.Data = p.Payload
	}
	return json.Marshal(out)
}
