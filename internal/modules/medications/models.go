package medications

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Medication struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string      `gorm:"size:255;not null;index" json:"name"`
	Dosage    string      `gorm:"size:100" json:"dosage"`
	Schedule  string      `gorm:"size:255" json:"schedule"`
	StartDate time.Time   `json:"start_date"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	User      models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Medication) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateMedicationRequest struct {
	Name      string `json:"name" validate:"max=255"`
	Dosage    string `json:"dosage" validate:"max=100"`
	Schedule  string `json:"schedule" validate:"max=255"`
	StartDate string `json:"start_date"` // YYYY-MM-DD, defaults to today
}

type UpdateMedicationRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=255"`
	Dosage    *string `json:"dosage" validate:"omitempty,max=100"`
	Schedule  *string `json:"schedule" validate:"omitempty,max=255"`
	StartDate *string `json:"start_date"`
}

type MedicationListResponse struct {
	Medications []Medication `json:"medications"`
	Total       int          `json:"total"`
}
