package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan mirrors a Stripe price. Rows are seeded at startup and created on the
// fly when a webhook references a price we have not seen before.
type Plan struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"not null;size:100" json:"name"`
	Slug          string         `gorm:"not null;size:120;uniqueIndex" json:"slug"`
	StripePriceID string         `gorm:"size:255;index" json:"stripe_price_id"`
	PriceCents    int64          `gorm:"not null;default:0" json:"price_cents"`
	Interval      string         `gorm:"size:20;default:'month'" json:"interval"`
	Features      datatypes.JSON `json:"features"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
