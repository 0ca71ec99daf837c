package medications

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMedicationNotFound = errors.New("medication not found")
	ErrNameRequired       = validation.Invalid("medication name is required")
	ErrInvalidStartDate   = validation.Invalid("start_date must be a date in YYYY-MM-DD format")
)

type MedicationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMedicationService(db *gorm.DB) *MedicationService {
	return &MedicationService{db: db, now: time.Now}
}

func (s *MedicationService) Create(userID uuid.UUID, req CreateMedicationRequest) (*Medication, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	start := midnightUTC(s.now())
	if req.StartDate != "" {
		d, err := parseDate(req.StartDate)
		if err != nil {
			return nil, err
		}
		start = d
	}

	med := Medication{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Dosage:    strings.TrimSpace(req.Dosage),
		Schedule:  strings.TrimSpace(req.Schedule),
		StartDate: start,
	}
	if err := s.db.Create(&med).Error; err != nil {
		return nil, err
	}
	return &med, nil
}

// List returns the user's medications ordered by name, ignoring case.
func (s *MedicationService) List(userID uuid.UUID) ([]Medication, error) {
	meds := []Medication{}
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("LOWER(name) ASC").
		Order("created_at ASC").
		Find(&meds).Error
	return meds, err
}

func (s *MedicationService) Get(userID, id uuid.UUID) (*Medication, error) {
	var med Medication
	if err := s.db.Scopes(session.ForOwner(userID)).First(&med, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, err
	}
	return &med, nil
}

func (s *MedicationService) Update(userID, id uuid.UUID, req UpdateMedicationRequest) (*Medication, error) {
	med, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		med.Name = name
	}
	if req.Dosage != nil {
		med.Dosage = strings.TrimSpace(*req.Dosage)
	}
	if req.Schedule != nil {
		med.Schedule = strings.TrimSpace(*req.Schedule)
	}
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		med.StartDate = d
	}

	if err := s.db.Save(med).Error; err != nil {
		return nil, err
	}
	return med, nil
}

func (s *MedicationService) Delete(userID, id uuid.UUID) error {
	med, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(med).Error
}

func (s *MedicationService) Count(userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Model(&Medication{}).Scopes(session.ForOwner(userID)).Count(&n).Error
	return n, err
}

// RecentlyAdded returns the newest medications first.
func (s *MedicationService) RecentlyAdded(userID uuid.UUID, limit int) ([]Medication, error) {
	var meds []Medication
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&meds).Error
	return meds, err
}

// ScheduledAt returns every user's medications whose schedule text mentions
// the given clock hour, written as "HH:00".
func (s *MedicationService) ScheduledAt(hourTag string) ([]Medication, error) {
	var meds []Medication
	err := s.db.Where("schedule LIKE ?", "%"+hourTag+"%").
		Order("user_id").
		Find(&meds).Error
	return meds, err
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if d, err := time.Parse("2006-01-02", v); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return midnightUTC(t), nil
	}
	return time.Time{}, ErrInvalidStartDate
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
