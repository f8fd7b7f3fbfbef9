package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"cravlr/internal/config"
	"cravlr/internal/handler"
	"cravlr/internal/middleware"
	"cravlr/internal/repository"
	"cravlr/internal/service"
	"cravlr/internal/service/auth"
	"cravlr/internal/service/push"
	"cravlr/internal/service/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	transport := service.Transport{Clock: clockwork.NewRealClock()}

	switch cfg.RealtimeFeed {
	case "redis":
		feed := realtime.NewRedisFeed(redis)
		go feed.Run(ctx)
		transport.Feed = feed
		transport.Changes = realtime.NewRedisPublisher(redis)
	default:
		feed, err := realtime.NewPostgresFeed(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to start change feed: %v", err)
		}
		defer feed.Close()
		go feed.Run(ctx)
		transport.Feed = feed
		transport.Changes = realtime.NopPublisher{}
	}

	if cfg.RabbitMQURL != "" {
		conn, ch, err := config.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		defer ch.Close()
		transport.Pusher = push.NewAMQPPublisher(ch, cfg.PushExchange, cfg.PushQueue)
	} else {
		log.Println("Warning: RABBITMQ_URL is not set, push notifications will only be logged")
		transport.Pusher = push.LogPublisher{}
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(ctx, repos, redis, transport, cfg)
	handlers := handler.NewHandlers(services, transport)

	go services.AutoCloser.Run(ctx)
	go services.Hub.Run(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/api/v1/server-time"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, services.Auth)

	// the default time source is this server, so measure only once it accepts connections
	onListen(app, func() {
		services.Estimator.Run(ctx)
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		services.Hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// onListen runs fn in the background once the server is bound to its port.
func onListen(app *fiber.App, fn func()) {
	app.Hooks().OnListen(func(fiber.ListenData) error {
		go fn()
		return nil
	})
}

func setupRoutes(app *fiber.App, h *handler.Handlers, authService auth.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/server-time", h.Time.ServerTime)

	protected := v1.Group("", middleware.AuthRequired(authService))

	requests := protected.Group("/requests")
	requests.Post("/", h.Request.Create)
	requests.Get("/active", h.Request.ListActive)
	requests.Get("/:requestId/recommendations", h.Request.ListRecommendations)
	requests.Post("/:requestId/recommendations", h.Request.AddRecommendation)
	requests.Post("/:requestId/decision", h.Notification.Decide)
	requests.Post("/:requestId/results/read", h.Notification.MarkResultsRead)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)

	popups := protected.Group("/popups")
	popups.Get("/current", h.Popup.Current)
	popups.Get("/stream", h.Popup.Stream)
	popups.Post("/current/accept", h.Popup.Accept)
	popups.Post("/current/ignore", h.Popup.Ignore)
	popups.Post("/current/dismiss", h.Popup.Dismiss)

	sessions := protected.Group("/session")
	sessions.Put("/visibility", h.Session.SetVisibility)
	sessions.Put("/dnd", h.Session.SetDND)
	sessions.Delete("/", h.Session.End)
}
