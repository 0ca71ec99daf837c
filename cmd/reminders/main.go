// Command reminders runs the appointment and medication e-mail reminders
// without the HTTP server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/database"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/logging"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/appointments"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/medications"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/services"
)

func main() {
	once := flag.Bool("once", false, "run a single reminder check and exit")
	flag.Parse()

	logging.Setup("info")
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close(database.DB) }()

	meds := medications.New(database.DB)
	appts := appointments.New(database.DB)
	if err := database.MigrateShared(database.DB); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateModels(database.DB, append(meds.Models(), appts.Models()...)); err != nil {
		slog.Error("module migration failed", "error", err)
		os.Exit(1)
	}

	reminderService := services.NewReminderService(database.DB,
		appts.Service(), meds.Service(),
		services.NewMailer(cfg), cfg.ReminderRatePerSec, cfg.ReminderBurst, cfg.Location())

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		report, err := reminderService.CheckReminders(ctx, time.Now())
		cancel()
		if err != nil {
			slog.Error("reminder check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("reminder check finished", "appointments", report.AppointmentsSent, "medications", report.MedicationsSent)
		return
	}

	scheduler, err := jobs.StartReminderScheduler(cfg.ReminderSchedule, reminderService, cfg.Location())
	if err != nil {
		slog.Error("reminder scheduler failed to start", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("stopping reminder service...")
	scheduler.Stop()
}
