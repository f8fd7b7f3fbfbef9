package clock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// TimeSource reports the trusted server wall clock.
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// HTTPTimeSource reads the server time endpoint through a circuit breaker.
type HTTPTimeSource struct {
	cb         *gobreaker.CircuitBreaker
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTimeSource(baseURL string) *HTTPTimeSource {
	return &HTTPTimeSource{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "server-time",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type serverTimeResponse struct {
	Now time.Time `json:"now"`
}

func (s *HTTPTimeSource) ServerTime(ctx context.Context) (time.Time, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/server-time", nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("server time returned status %d", resp.StatusCode)
		}

		var body serverTimeResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode server time: %w", err)
		}
		if body.Now.IsZero() {
			return nil, errors.New("server time response has no timestamp")
		}
		return body.Now, nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return result.(time.Time), nil
}
