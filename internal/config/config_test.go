package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.RealtimeFeed)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, "http://localhost:8080", cfg.TimeSourceURL)
	assert.Equal(t, 15*time.Minute, cfg.SkewRefreshInterval)
	assert.Equal(t, time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.PopupAdvanceDelay)
	assert.Equal(t, time.Minute, cfg.AutoCloseInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("REALTIME_FEED", "redis")
	t.Setenv("HEARTBEAT_INTERVAL", "250ms")
	t.Setenv("POPUP_SEEN_RETENTION", "0s")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9090", cfg.TimeSourceURL)
	assert.Equal(t, "redis", cfg.RealtimeFeed)
	assert.Equal(t, 250*time.Millisecond, cfg.HeartbeatInterval)
	assert.Zero(t, cfg.PopupSeenRetention)
	assert.True(t, cfg.IsProduction())
}
