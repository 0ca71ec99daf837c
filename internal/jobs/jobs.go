// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/services"
	"github.com/robfig/cron/v3"
)

const reminderTimeout = 5 * time.Minute

// ReminderChecker is satisfied by services.ReminderService.
type ReminderChecker interface {
	CheckReminders(ctx context.Context, now time.Time) (*services.ReminderReport, error)
}

type Scheduler struct {
	cron    *cron.Cron
	startup sync.WaitGroup
}

// StartReminderScheduler runs one reminder check right away and then on spec
// (for example "@every 10m"). A run that would overlap the previous one is
// skipped.
func StartReminderScheduler(spec string, checker ReminderChecker, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { RunReminders(checker) }))

	s := &Scheduler{cron: cron.New(cron.WithLocation(loc), cron.WithLogger(logger))}
	s.cron.Schedule(schedule, job)
	s.cron.Start()

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		job.Run()
	}()

	slog.Info("reminder scheduler started", "schedule", spec, "timezone", loc.String())
	return s, nil
}

// Stop ends scheduling and waits for any running check.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.startup.Wait()
	slog.Info("reminder scheduler stopped")
}

// RunReminders performs one bounded reminder check and logs the outcome.
func RunReminders(checker ReminderChecker) *services.ReminderReport {
	ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
	defer cancel()

	report, err := checker.CheckReminders(ctx, time.Now())
	if errors.Is(err, services.ErrReminderCheckRunning) {
		slog.Info("reminder check skipped, another pass is running", "action", "reminders")
		return nil
	}
	if err != nil {
		slog.Error("reminder check failed", "action", "reminders", "error", err.Error())
	}
	return report
}
