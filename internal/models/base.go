package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the string UUID primary key and timestamps shared by every table.
type Base struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All returns every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Expertise{},
		&User{},
		&OTPCode{},
		&Property{},
		&Case{},
		&Damage{},
		&DamagePhoto{},
		&CaseTimeline{},
		&Report{},
		&AssessmentItem{},
		&AssessmentSummary{},
		&ReportPhoto{},
		&Payment{},
		&InspectorPayment{},
		&Refund{},
		&Conversation{},
		&Message{},
		&ActionLog{},
		&PlatformSettings{},
		&Notification{},
	}
}
