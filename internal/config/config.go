package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	RedisURL string

	RabbitMQURL  string
	PushQueue    string
	PushExchange string

	JWTSecret string

	CORSOrigins string

	ResendAPIKey string
	FromEmail    string
	Domain       string

	// Delivery pipeline
	// TimeSourceURL defaults to this process. With several instances it must point at the
	// one authoritative instance, since probing yourself always measures zero skew.
	TimeSourceURL       string
	SkewRefreshInterval time.Duration
	HeartbeatInterval   time.Duration
	DueSlack            time.Duration
	PopupAdvanceDelay   time.Duration
	PopupSeenRetention  time.Duration
	RealtimeFeed        string
	PollInterval        time.Duration
	ResubscribeInterval time.Duration
	SessionIdleTimeout  time.Duration
	AutoCloseInterval   time.Duration
	AutoCloseLockTTL    time.Duration
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("push_queue", "push.queue")
	v.SetDefault("push_exchange", "notification.direct")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", "http://localhost:5173")
	v.SetDefault("resend_api_key", "")
	v.SetDefault("from_email", "noreply@example.com")
	v.SetDefault("domain", "localhost:5173")

	v.SetDefault("time_source_url", "")
	v.SetDefault("skew_refresh_interval", 15*time.Minute)
	v.SetDefault("heartbeat_interval", time.Second)
	v.SetDefault("due_slack", 50*time.Millisecond)
	v.SetDefault("popup_advance_delay", 500*time.Millisecond)
	v.SetDefault("popup_seen_retention", 10*time.Minute)
	v.SetDefault("realtime_feed", "postgres")
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("resubscribe_interval", 5*time.Second)
	v.SetDefault("session_idle_timeout", 30*time.Minute)
	v.SetDefault("auto_close_interval", time.Minute)
	v.SetDefault("auto_close_lock_ttl", 50*time.Second)

	port := v.GetString("port")
	timeSource := v.GetString("time_source_url")
	if timeSource == "" {
		timeSource = "http://localhost:" + port
	}

	return &Config{
		Port:        port,
		Environment: v.GetString("environment"),

		DatabaseURL:    v.GetString("database_url"),
		DBMaxOpenConns: v.GetInt("db_max_open_conns"),
		DBMaxIdleConns: v.GetInt("db_max_idle_conns"),

		RedisURL: v.GetString("redis_url"),

		RabbitMQURL:  v.GetString("rabbitmq_url"),
		PushQueue:    v.GetString("push_queue"),
		PushExchange: v.GetString("push_exchange"),

		JWTSecret: v.GetString("jwt_secret"),

		CORSOrigins: v.GetString("cors_origins"),

		ResendAPIKey: v.GetString("resend_api_key"),
		FromEmail:    v.GetString("from_email"),
		Domain:       v.GetString("domain"),

		TimeSourceURL:       timeSource,
		SkewRefreshInterval: v.GetDuration("skew_refresh_interval"),
		HeartbeatInterval:   v.GetDuration("heartbeat_interval"),
		DueSlack:            v.GetDuration("due_slack"),
		PopupAdvanceDelay:   v.GetDuration("popup_advance_delay"),
		PopupSeenRetention:  v.GetDuration("popup_seen_retention"),
		RealtimeFeed:        v.GetString("realtime_feed"),
		PollInterval:        v.GetDuration("poll_interval"),
		ResubscribeInterval: v.GetDuration("resubscribe_interval"),
		SessionIdleTimeout:  v.GetDuration("session_idle_timeout"),
		AutoCloseInterval:   v.GetDuration("auto_close_interval"),
		AutoCloseLockTTL:    v.GetDuration("auto_close_lock_ttl"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
