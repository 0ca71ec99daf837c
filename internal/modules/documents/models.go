package documents

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	OriginalFilename string      `gorm:"size:255;not null" json:"original_filename"`
	StorageKey       string      `gorm:"size:512;not null;uniqueIndex" json:"-"`
	ContentType      string      `gorm:"size:100" json:"content_type"`
	SizeBytes        int64       `json:"size_bytes"`
	Description      string      `gorm:"type:text" json:"description"`
	UploadedAt       time.Time   `gorm:"not null;index" json:"uploaded_at"`
	CreatedAt        time.Time   `json:"created_at"`
	User             models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type UploadResponse struct {
	Uploaded []Document      `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}

type DocumentListResponse struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}
