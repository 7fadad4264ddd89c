package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OnboardingStep is one entry of the seeded wizard catalog.
type OnboardingStep struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;size:100;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Order       int       `gorm:"column:step_order;not null" json:"order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *OnboardingStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// OnboardingProgress tracks one account's position in the wizard. Data is a
// free-form bag the frontend writes step payloads into, including the
// `<step>_step_completed` flags.
type OnboardingProgress struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentStepID *uuid.UUID     `gorm:"type:uuid" json:"current_step_id"`
	IsComplete    bool           `gorm:"default:false" json:"is_complete"`
	CompletedAt   *time.Time     `json:"completed_at"`
	Data          datatypes.JSON `json:"data"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	User          User           `gorm:"foreignKey:UserID" json:"-"`
}

func (p *OnboardingProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
