package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	logging.WithDB(pgLogHandler)

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	repos := repository.New(database.DB)
	stores := services.StoresFrom(repos)

	// Live queries
	var broker live.Broker = live.NewMemoryBroker()
	if cfg.RedisURL != "" {
		rb, err := live.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			slog.Error("redis broker unavailable", "error", err)
			os.Exit(1)
		}
		broker = rb
	}
	slog.Info("live broker ready", "kind", broker.Kind())

	// Notifications: outbox writes here, relay delivers (embedded unless a
	// separate notifier process runs it).
	transport, closeTransport, err := notify.TransportFromConfig(cfg)
	if err != nil {
		slog.Error("notification transport failed", "error", err)
		os.Exit(1)
	}
	relay := notify.NewRelay(repos.Outbox, transport, notify.RelayConfigFrom(cfg, cfg.DSN()))
	outbox := notify.NewOutbox(repos.Outbox, relay.Wake)

	ctx, cancel := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	if cfg.NotifyRelay == "external" {
		close(relayDone)
		slog.Info("notification relay runs externally")
	} else {
		go func() {
			defer close(relayDone)
			if err := relay.Run(ctx); err != nil {
				slog.Error("notification relay stopped", "error", err)
			}
		}()
	}

	// Services
	userService := services.NewUserService(stores)
	studentService := services.NewStudentService(stores)
	directoryService := services.NewDirectoryService(stores)
	reportService := services.NewReportService(stores, outbox, broker, cfg.ShareLink)
	locationService := services.NewLocationService(stores, broker)
	correspondentService := services.NewCorrespondentService(stores, userService,
		identity.NewClient(cfg), notify.DirectFromConfig(cfg), cfg.AppBaseURL+"/sign-in")

	var verifier *identity.WebhookVerifier
	if cfg.ClerkWebhookSecret != "" {
		verifier, err = identity.NewWebhookVerifier(cfg.ClerkWebhookSecret)
		if err != nil {
			slog.Error("invalid CLERK_WEBHOOK_SECRET", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("CLERK_WEBHOOK_SECRET not set, identity webhooks will be refused")
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, broker.Kind())
	webhookHandler := handlers.NewWebhookHandler(verifier, userService)
	fileHandler := handlers.NewFileHandler(storage.New(cfg.DataDir, cfg.UploadMaxPhotoBytes, cfg.UploadMaxAudioBytes))
	accountHandler := handlers.NewAccountHandler(userService, studentService, directoryService)
	reportHandler := handlers.NewReportHandler(reportService, locationService, studentService, cfg.ShareLink)
	streamHandler := handlers.NewStreamHandler(reportService, locationService, broker)
	adminHandler := handlers.NewAdminHandler(userService, studentService, correspondentService, directoryService)

	// Fiber app; the body limit leaves room for the largest audio upload.
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.UploadMaxAudioBytes) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "no-referrer")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, userService, studentService,
		healthHandler, webhookHandler, fileHandler, accountHandler, reportHandler, streamHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	<-relayDone
	if err := closeTransport(); err != nil {
		slog.Error("notification transport close error", "error", err)
	}
	if err := broker.Close(); err != nil {
		slog.Error("live broker close error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	database.Close()

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
