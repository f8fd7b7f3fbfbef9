package service

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"cravlr/internal/config"
	"cravlr/internal/repository"
	"cravlr/internal/service/auth"
	"cravlr/internal/service/clock"
	"cravlr/internal/service/email"
	"cravlr/internal/service/expiry"
	"cravlr/internal/service/lock"
	"cravlr/internal/service/notification"
	"cravlr/internal/service/popup"
	"cravlr/internal/service/push"
	"cravlr/internal/service/realtime"
	"cravlr/internal/service/request"
	"cravlr/internal/service/session"
)

// Transport carries the outbound plumbing chosen at startup.
type Transport struct {
	Clock   clockwork.Clock
	Feed    realtime.Feed
	Changes realtime.Publisher
	Pusher  push.Publisher
}

type Services struct {
	Auth         auth.Service
	Email        email.Service
	Notification notification.Service
	Request      request.Service
	Estimator    *clock.Estimator
	AutoCloser   *request.AutoCloser
	Hub          *session.Hub
}

func NewServices(ctx context.Context, repos *repository.Repositories, redis *redis.Client, transport Transport, cfg *config.Config) *Services {
	clk := transport.Clock
	emailService := email.NewService(cfg)
	authService := auth.NewService(repos.User, cfg)

	notificationService := notification.NewService(
		repos.Notification,
		repos.RequestUserState,
		repos.Request,
		repos.User,
		emailService,
		transport.Pusher,
		transport.Changes,
		clk,
	)
	requestService := request.NewService(repos.Request, repos.Recommendation, notificationService, transport.Changes, clk)

	estimator := clock.NewEstimator(clock.NewHTTPTimeSource(cfg.TimeSourceURL), clk, cfg.SkewRefreshInterval)
	autoCloser := request.NewAutoCloser(requestService, lock.NewRedisLocker(redis), clk, cfg.AutoCloseInterval, cfg.AutoCloseLockTTL)

	hub := session.NewHub(ctx, session.Deps{
		Clock:         clk,
		Skew:          estimator,
		Feed:          transport.Feed,
		Requests:      requestService,
		Notifications: notificationService,
	}, session.Options{
		Expiry: expiry.Options{
			DueSlack:  cfg.DueSlack,
			Heartbeat: cfg.HeartbeatInterval,
		},
		Popup: popup.Options{
			AdvanceDelay:  cfg.PopupAdvanceDelay,
			SeenRetention: cfg.PopupSeenRetention,
		},
		Realtime: realtime.Options{
			PollInterval:        cfg.PollInterval,
			ResubscribeInterval: cfg.ResubscribeInterval,
		},
		IdleTimeout: cfg.SessionIdleTimeout,
	})

	return &Services{
		Auth:         authService,
		Email:        emailService,
		Notification: notificationService,
		Request:      requestService,
		Estimator:    estimator,
		AutoCloser:   autoCloser,
		Hub:          hub,
	}
}
