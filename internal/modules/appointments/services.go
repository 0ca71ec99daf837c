package appointments

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ScopeUpcoming = "upcoming"
	ScopePast     = "past"
	ScopeAll      = "all"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorRequired      = validation.Invalid("doctor_name is required")
	ErrScheduleRequired    = validation.Invalid("scheduled_at is required")
	ErrInvalidSchedule     = validation.Invalid("scheduled_at must be an RFC3339 timestamp or YYYY-MM-DDTHH:MM")
	ErrInvalidScope        = validation.Invalid("scope must be one of: upcoming, past, all")
)

// Form inputs without a zone are read as UTC.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

type AppointmentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAppointmentService(db *gorm.DB) *AppointmentService {
	return &AppointmentService{db: db, now: time.Now}
}

func (s *AppointmentService) Create(userID uuid.UUID, req CreateAppointmentRequest) (*Appointment, error) {
	doctor := strings.TrimSpace(req.DoctorName)
	if doctor == "" {
		return nil, ErrDoctorRequired
	}
	if strings.TrimSpace(req.ScheduledAt) == "" {
		return nil, ErrScheduleRequired
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	at, err := parseSchedule(req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	appt := Appointment{
		ID:          uuid.New(),
		UserID:      userID,
		DoctorName:  doctor,
		Specialty:   strings.TrimSpace(req.Specialty),
		ScheduledAt: at,
		Location:    strings.TrimSpace(req.Location),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := s.db.Create(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

// List returns appointments for scope, latest first, plus upcoming and past
// totals relative to now.
func (s *AppointmentService) List(userID uuid.UUID, scope string) (*AppointmentListResponse, error) {
	if scope == "" {
		scope = ScopeAll
	}
	now := s.now().UTC()

	q := s.db.Scopes(session.ForOwner(userID))
	switch scope {
	case ScopeUpcoming:
		q = q.Where("scheduled_at >= ?", now)
	case ScopePast:
		q = q.Where("scheduled_at < ?", now)
	case ScopeAll:
	default:
		return nil, ErrInvalidScope
	}

	appts := []Appointment{}
	if err := q.Order("scheduled_at DESC").Find(&appts).Error; err != nil {
		return nil, err
	}

	resp := &AppointmentListResponse{Appointments: appts, Scope: scope}
	if err := s.db.Model(&Appointment{}).Scopes(session.ForOwner(userID)).
		Where("scheduled_at >= ?", now).Count(&resp.UpcomingCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&Appointment{}).Scopes(session.ForOwner(userID)).
		Where("scheduled_at < ?", now).Count(&resp.PastCount).Error; err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *AppointmentService) Get(userID, id uuid.UUID) (*Appointment, error) {
	var appt Appointment
	if err := s.db.Scopes(session.ForOwner(userID)).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentService) Update(userID, id uuid.UUID, req UpdateAppointmentRequest) (*Appointment, error) {
	appt, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if req.DoctorName != nil {
		doctor := strings.TrimSpace(*req.DoctorName)
		if doctor == "" {
			return nil, ErrDoctorRequired
		}
		appt.DoctorName = doctor
	}
	if req.ScheduledAt != nil {
		at, err := parseSchedule(*req.ScheduledAt)
		if err != nil {
			return nil, err
		}
		appt.ScheduledAt = at
	}
	if req.Specialty != nil {
		appt.Specialty = strings.TrimSpace(*req.Specialty)
	}
	if req.Location != nil {
		appt.Location = strings.TrimSpace(*req.Location)
	}
	if req.Notes != nil {
		appt.Notes = strings.TrimSpace(*req.Notes)
	}

	if err := s.db.Save(appt).Error; err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *AppointmentService) Delete(userID, id uuid.UUID) error {
	appt, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(appt).Error
}

// Upcoming returns the user's appointments in [now, now+window], soonest first.
func (s *AppointmentService) Upcoming(userID uuid.UUID, now time.Time, window time.Duration) ([]Appointment, error) {
	appts := []Appointment{}
	err := s.db.Scopes(session.ForOwner(userID), between(now, window)).
		Order("scheduled_at ASC").
		Find(&appts).Error
	return appts, err
}

// UpcomingAll is Upcoming across every user.
func (s *AppointmentService) UpcomingAll(now time.Time, window time.Duration) ([]Appointment, error) {
	var appts []Appointment
	err := s.db.Scopes(between(now, window)).
		Order("scheduled_at ASC").
		Find(&appts).Error
	return appts, err
}

// RecentlyAdded returns the newest appointments by creation time.
func (s *AppointmentService) RecentlyAdded(userID uuid.UUID, limit int) ([]Appointment, error) {
	var appts []Appointment
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&appts).Error
	return appts, err
}

func between(now time.Time, window time.Duration) func(*gorm.DB) *gorm.DB {
	from := now.UTC()
	to := from.Add(window)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("scheduled_at >= ? AND scheduled_at <= ?", from, to)
	}
}

func parseSchedule(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, ErrScheduleRequired
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidSchedule
}
