package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/database"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/logging"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/appointments"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/dashboard"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/documents"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/medications"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/vitals"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/routes"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/services"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const logRetention = 30 * 24 * time.Hour

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup("info")

	cfg := config.Load()
	stdout := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Migrate shared models
	if err := database.MigrateShared(database.DB); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, dbLogHandler)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, logRetention, cleanupDone)

	// Document storage
	store, err := storage.Backend(context.Background(), cfg.StorageBackend, cfg.StorageDir, storage.S3Options{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		slog.Error("storage init failed", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	slog.Info("document storage ready", "backend", cfg.StorageBackend)

	// Modules
	medsModule := medications.New(database.DB)
	apptModule := appointments.New(database.DB)
	docsModule := documents.New(database.DB, store, cfg.DownloadURLTTL)
	vitalsModule := vitals.New(database.DB)
	mods := []modules.Module{
		medsModule,
		apptModule,
		docsModule,
		vitalsModule,
		dashboard.New(database.DB, medsModule.Service(), apptModule.Service(), docsModule.Service(), vitalsModule.Service()),
	}

	// Migrate module models
	for _, m := range mods {
		if models := m.Models(); len(models) > 0 {
			if err := database.MigrateModels(database.DB, models); err != nil {
				slog.Error("module migration failed", "module", m.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("module migrated", "module", m.ID(), "models", len(models))
		}
	}

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	authService.AddPurger(medsModule)
	authService.AddPurger(apptModule)
	authService.AddPurger(vitalsModule)
	authService.AddPurger(docsModule)

	reminderService := services.NewReminderService(database.DB,
		apptModule.Service(), medsModule.Service(),
		services.NewMailer(cfg), cfg.ReminderRatePerSec, cfg.ReminderBurst, cfg.Location())

	var scheduler *jobs.Scheduler
	if cfg.RemindersEnabled {
		scheduler, err = jobs.StartReminderScheduler(cfg.ReminderSchedule, reminderService, cfg.Location())
		if err != nil {
			slog.Error("reminder scheduler failed to start", "error", err)
			os.Exit(1)
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(database.DB)
	adminHandler := handlers.NewAdminHandler(database.DB, reminderService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.UploadMaxBytes,
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
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, adminHandler, mods)

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

	if scheduler != nil {
		scheduler.Stop()
	}
	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := database.Close(database.DB); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(),
			"request_id", c.Locals("requestid"), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
