package appointments

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Appointment struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_appointment_user_time" json:"user_id"`
	DoctorName  string      `gorm:"size:255;not null" json:"doctor_name"`
	Specialty   string      `gorm:"size:255" json:"specialty"`
	ScheduledAt time.Time   `gorm:"not null;index:idx_appointment_user_time;index" json:"scheduled_at"`
	Location    string      `gorm:"size:255" json:"location"`
	Notes       string      `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	User        models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateAppointmentRequest struct {
	DoctorName  string `json:"doctor_name" validate:"max=255"`
	Specialty   string `json:"specialty" validate:"max=255"`
	ScheduledAt string `json:"scheduled_at"`
	Location    string `json:"location" validate:"max=255"`
	Notes       string `json:"notes"`
}

type UpdateAppointmentRequest struct {
	DoctorName  *string `json:"doctor_name" validate:"omitempty,max=255"`
	Specialty   *string `json:"specialty" validate:"omitempty,max=255"`
	ScheduledAt *string `json:"scheduled_at"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	Notes       *string `json:"notes"`
}

type AppointmentListResponse struct {
	Appointments  []Appointment `json:"appointments"`
	Scope         string        `json:"scope"`
	UpcomingCount int64         `json:"upcoming_count"`
	PastCount     int64         `json:"past_count"`
}
