package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/appointments"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/medications"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	appointmentLead      = 24 * time.Hour
	reminderDateLayout   = "Monday, January 02, 2006 at 03:04 PM"
	medicationSlotLayout = "2006-01-02T15"
)

// ErrReminderCheckRunning is returned when another pass holds the service.
var ErrReminderCheckRunning = errors.New("a reminder check is already running")

// ReminderReport summarises one reminder pass. AlreadySent counts slots a
// previous pass delivered.
type ReminderReport struct {
	AppointmentsSent int `json:"appointments_sent"`
	MedicationsSent  int `json:"medications_sent"`
	AlreadySent      int `json:"already_sent"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
}

type ReminderService struct {
	db      *gorm.DB
	appts   *appointments.AppointmentService
	meds    *medications.MedicationService
	mailer  Mailer
	limiter *rate.Limiter
	loc     *time.Location

	// running serialises passes from cron and the admin trigger.
	running sync.Mutex
}

func NewReminderService(db *gorm.DB, appts *appointments.AppointmentService, meds *medications.MedicationService,
	mailer Mailer, ratePerSec float64, burst int, loc *time.Location) *ReminderService {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	if burst <= 0 {
		burst = 1
	}
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		db:      db,
		appts:   appts,
		meds:    meds,
		mailer:  mailer,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		loc:     loc,
	}
}

type reminder struct {
	kind    string
	refID   uuid.UUID
	slotKey string
	user    *models.User
	subject string
	body    string
}

// CheckReminders e-mails appointment reminders for the next 24 hours and
// medication reminders for the current hour. Each (kind, record, slot) is
// delivered at most once.
func (s *ReminderService) CheckReminders(ctx context.Context, now time.Time) (*ReminderReport, error) {
	if !s.running.TryLock() {
		return nil, ErrReminderCheckRunning
	}
	defer s.running.Unlock()

	slog.Info("reminder check started", "action", "reminders", "at", now.Format(time.RFC3339))
	report := &ReminderReport{}
	users := map[uuid.UUID]*models.User{}

	appts, err := s.appts.UpcomingAll(now, appointmentLead)
	if err != nil {
		return report, fmt.Errorf("failed to load upcoming appointments: %w", err)
	}
	for _, a := range appts {
		user, err := s.user(users, a.UserID)
		if err != nil {
			return report, err
		}
		if user == nil {
			continue
		}
		r := reminder{
			kind:    models.ReminderKindAppointment,
			refID:   a.ID,
			slotKey: a.ScheduledAt.UTC().Format(time.RFC3339),
			user:    user,
			subject: "Upcoming Appointment Reminder",
			body:    appointmentBody(user, a, s.loc),
		}
		sent, err := s.deliver(ctx, r, report)
		if err != nil {
			return report, err
		}
		if sent {
			report.AppointmentsSent++
		}
	}

	local := now.In(s.loc)
	meds, err := s.meds.ScheduledAt(local.Format("15") + ":00")
	if err != nil {
		return report, fmt.Errorf("failed to load scheduled medications: %w", err)
	}
	slot := local.Format(medicationSlotLayout)
	for _, m := range meds {
		user, err := s.user(users, m.UserID)
		if err != nil {
			return report, err
		}
		if user == nil {
			continue
		}
		r := reminder{
			kind:    models.ReminderKindMedication,
			refID:   m.ID,
			slotKey: slot,
			user:    user,
			subject: "Medication Reminder",
			body:    medicationBody(user, m),
		}
		sent, err := s.deliver(ctx, r, report)
		if err != nil {
			return report, err
		}
		if sent {
			report.MedicationsSent++
		}
	}

	slog.Info("reminder check finished", "action", "reminders",
		"appointments_sent", report.AppointmentsSent, "medications_sent", report.MedicationsSent,
		"already_sent", report.AlreadySent, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// deliver sends r unless its slot is already logged. Only context
// cancellation and database failures are returned as errors.
func (s *ReminderService) deliver(ctx context.Context, r reminder, report *ReminderReport) (bool, error) {
	var logged int64
	if err := s.db.Model(&models.ReminderLog{}).
		Where("kind = ? AND ref_id = ? AND slot_key = ?", r.kind, r.refID, r.slotKey).
		Count(&logged).Error; err != nil {
		return false, fmt.Errorf("failed to check reminder log: %w", err)
	}
	if logged > 0 {
		report.AlreadySent++
		return false, nil
	}

	if strings.TrimSpace(r.user.Email) == "" {
		report.Skipped++
		return false, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	if err := s.mailer.Send(ctx, r.user.Email, r.subject, r.body); err != nil {
		if errors.Is(err, ErrMailerDisabled) {
			report.Skipped++
			return false, nil
		}
		report.Failed++
		slog.Error("reminder delivery failed", "user_id", r.user.ID.String(), "action", "reminders",
			"kind", r.kind, "ref_id", r.refID.String(), "error", err.Error())
		return false, nil
	}

	entry := models.ReminderLog{
		Kind:    r.kind,
		RefID:   r.refID,
		SlotKey: r.slotKey,
		UserID:  r.user.ID,
		SentAt:  time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return true, fmt.Errorf("failed to record reminder: %w", err)
	}
	return true, nil
}

// user caches lookups for one pass. A nil user means the owner is gone.
func (s *ReminderService) user(cache map[uuid.UUID]*models.User, id uuid.UUID) (*models.User, error) {
	if u, ok := cache[id]; ok {
		return u, nil
	}
	var u models.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[id] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	cache[id] = &u
	return &u, nil
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func appointmentBody(u *models.User, a appointments.Appointment, loc *time.Location) string {
	return fmt.Sprintf("Hi %s,\n\n"+
		"This is a reminder for your upcoming appointment:\n"+
		"Doctor: %s (%s)\n"+
		"Date & Time: %s\n"+
		"Location: %s\n\n"+
		"Have a great day!\nYour Personal Health Manager",
		displayName(u), a.DoctorName, a.Specialty, a.ScheduledAt.In(loc).Format(reminderDateLayout), a.Location)
}

func medicationBody(u *models.User, m medications.Medication) string {
	return fmt.Sprintf("Hi %s,\n\n"+
		"It's time to take your medication:\n"+
		"Medication: %s\n"+
		"Dosage: %s\n"+
		"Schedule Info: %s\n\n"+
		"Stay healthy!\nYour Personal Health Manager",
		displayName(u), m.Name, m.Dosage, m.Schedule)
}
