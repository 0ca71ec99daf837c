package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReminderKindAppointment = "appointment"
	ReminderKindMedication  = "medication"
)

// ReminderLog records a delivered reminder. (Kind, RefID, SlotKey) is unique,
// so each occurrence is mailed at most once.
type ReminderLog struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind    string    `gorm:"size:20;not null;uniqueIndex:idx_reminder_slot,priority:1" json:"kind"`
	RefID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reminder_slot,priority:2" json:"ref_id"`
	SlotKey string    `gorm:"size:40;not null;uniqueIndex:idx_reminder_slot,priority:3" json:"slot_key"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	SentAt  time.Time `gorm:"not null" json:"sent_at"`
}

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
