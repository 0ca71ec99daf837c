package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/appointments"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/documents"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/medications"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/modules/vitals"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	timelineSize   = 10
)

var ErrUserNotFound = errors.New("user not found")

type MedicationSource interface {
	Count(userID uuid.UUID) (int64, error)
	RecentlyAdded(userID uuid.UUID, limit int) ([]medications.Medication, error)
}

type AppointmentSource interface {
	Upcoming(userID uuid.UUID, now time.Time, window time.Duration) ([]appointments.Appointment, error)
	RecentlyAdded(userID uuid.UUID, limit int) ([]appointments.Appointment, error)
}

type DocumentSource interface {
	RecentlyAdded(userID uuid.UUID, limit int) ([]documents.Document, error)
}

type VitalSource interface {
	RecentlyLogged(userID uuid.UUID, limit int) ([]vitals.HealthVital, error)
}

type Event struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
}

type Summary struct {
	Name                 string                     `json:"name"`
	UpcomingAppointments []appointments.Appointment `json:"upcoming_appointments"`
	UpcomingCount        int                        `json:"upcoming_count"`
	MedicationCount      int64                      `json:"medication_count"`
	Timeline             []Event                    `json:"timeline"`
}

type DashboardService struct {
	db    *gorm.DB
	meds  MedicationSource
	appts AppointmentSource
	docs  DocumentSource
	vits  VitalSource
	now   func() time.Time
}

func NewDashboardService(db *gorm.DB, meds MedicationSource, appts AppointmentSource, docs DocumentSource, vits VitalSource) *DashboardService {
	return &DashboardService{db: db, meds: meds, appts: appts, docs: docs, vits: vits, now: time.Now}
}

func (s *DashboardService) Summary(userID uuid.UUID) (*Summary, error) {
	var user models.User
	if err := s.db.Select("id", "name", "username").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	name := user.Name
	if name == "" {
		name = user.Username
	}

	upcoming, err := s.appts.Upcoming(userID, s.now(), upcomingWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming appointments: %w", err)
	}
	medCount, err := s.meds.Count(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count medications: %w", err)
	}
	timeline, err := s.Timeline(userID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Name:                 name,
		UpcomingAppointments: upcoming,
		UpcomingCount:        len(upcoming),
		MedicationCount:      medCount,
		Timeline:             timeline,
	}, nil
}

// Timeline merges the most recent activity of every module, newest first.
func (s *DashboardService) Timeline(userID uuid.UUID) ([]Event, error) {
	events := []Event{}

	docs, err := s.docs.RecentlyAdded(userID, timelineSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	for _, d := range docs {
		events = append(events, Event{At: d.UploadedAt, Kind: "document", Summary: "Uploaded " + d.OriginalFilename})
	}

	appts, err := s.appts.RecentlyAdded(userID, timelineSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	for _, a := range appts {
		events = append(events, Event{
			At:      a.CreatedAt,
			Kind:    "appointment",
			Summary: fmt.Sprintf("Added appointment with %s on %s", a.DoctorName, a.ScheduledAt.Format("Jan 2, 2006 3:04 PM")),
		})
	}

	meds, err := s.meds.RecentlyAdded(userID, timelineSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}
	for _, m := range meds {
		summary := "Added medication " + m.Name
		if m.Dosage != "" {
			summary += " (" + m.Dosage + ")"
		}
		events = append(events, Event{At: m.CreatedAt, Kind: "medication", Summary: summary})
	}

	vits, err := s.vits.RecentlyLogged(userID, timelineSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load vitals: %w", err)
	}
	for _, v := range vits {
		events = append(events, Event{At: v.RecordedAt, Kind: "vital", Summary: "Logged " + v.VitalType + ": " + vitals.Display(v)})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].At.After(events[j].At) })
	if len(events) > timelineSize {
		events = events[:timelineSize]
	}
	return events, nil
}
