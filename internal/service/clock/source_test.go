package clock_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravlr/internal/service/clock"
)

func TestHTTPTimeSource_ServerTime(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/server-time", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"now":"2025-03-01T12:00:00.250Z"}`))
		}))
		defer srv.Close()

		got, err := clock.NewHTTPTimeSource(srv.URL + "/").ServerTime(context.Background())

		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2025, 3, 1, 12, 0, 0, 250_000_000, time.UTC)))
	})

	t.Run("Bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := clock.NewHTTPTimeSource(srv.URL).ServerTime(context.Background())
		assert.Error(t, err)
	})

	t.Run("Breaker opens after repeated failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		src := clock.NewHTTPTimeSource(srv.URL)
		for i := 0; i < 5; i++ {
			_, err := src.ServerTime(context.Background())
			assert.Error(t, err)
		}
		assert.Equal(t, int32(3), calls.Load())
	})
}
