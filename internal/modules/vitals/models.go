package vitals

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BloodPressure = "Blood Pressure"
	BloodSugar    = "Blood Sugar"
	Weight        = "Weight"
	HeartRate     = "Heart Rate"
)

// Types lists the supported vital types in form order.
var Types = []string{BloodPressure, BloodSugar, Weight, HeartRate}

type rule struct {
	units     []string // first is the default
	twoValues bool
}

var rules = map[string]rule{
	BloodPressure: {units: []string{"mmHg"}, twoValues: true},
	BloodSugar:    {units: []string{"mg/dL", "mmol/L"}},
	Weight:        {units: []string{"kg", "lbs"}},
	HeartRate:     {units: []string{"BPM"}},
}

type HealthVital struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_vital_user_type" json:"user_id"`
	VitalType  string      `gorm:"size:50;not null;index:idx_vital_user_type" json:"vital_type"`
	Value1     float64     `gorm:"not null" json:"value1"`
	Value2     *float64    `json:"value2"`
	Unit       string      `gorm:"size:20;not null" json:"unit"`
	RecordedAt time.Time   `gorm:"not null;index" json:"recorded_at"`
	CreatedAt  time.Time   `json:"created_at"`
	User       models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (v *HealthVital) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateVitalRequest struct {
	VitalType  string   `json:"vital_type" validate:"required"`
	Value1     float64  `json:"value1" validate:"gt=0"`
	Value2     *float64 `json:"value2"`
	Unit       string   `json:"unit"`
	RecordedAt string   `json:"recorded_at"`
}

type VitalListResponse struct {
	Vitals []HealthVital `json:"vitals"`
	Total  int           `json:"total"`
}

type TrendPoint struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

type TrendSeries struct {
	Name   string       `json:"name"`
	Points []TrendPoint `json:"points"`
}

type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Display    string    `json:"display"`
}

type TrendResponse struct {
	Type    string         `json:"type"`
	Unit    string         `json:"unit"`
	Series  []TrendSeries  `json:"series"`
	History []HistoryEntry `json:"history"`
}
