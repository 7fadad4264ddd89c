package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Subscription is the single billing record per account. All writes go
// through BillingService.upsertSubscription so webhook replays stay idempotent.
type Subscription struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PlanID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"plan_id"`
	Status               string     `gorm:"not null;default:'active';size:50" json:"status"`
	StripeSubscriptionID string     `gorm:"size:255;index" json:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Plan                 Plan       `gorm:"foreignKey:PlanID" json:"plan"`
	User                 User       `gorm:"foreignKey:UserID" json:"-"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the subscription currently grants plan benefits.
func (s *Subscription) IsActive() bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(time.Now()) {
		return false
	}
	return true
}
