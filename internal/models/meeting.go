package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MeetingPending     = "pending"
	MeetingConfirmed   = "confirmed"
	MeetingRescheduled = "rescheduled"
	MeetingStarted     = "started"
	MeetingCompleted   = "completed"
	MeetingCancelled   = "cancelled"
	MeetingExpired     = "expired"
)

// Meeting is a scheduled consultation. UserID is the client who booked it;
// HostID is assigned when a host confirms. MeetingURL stays empty until the
// meeting is confirmed or started.
type Meeting struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	HostID      *uuid.UUID `gorm:"type:uuid;index" json:"host_id"`
	Title       string     `gorm:"size:255;default:'Consultation Meeting'" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Duration    int        `gorm:"not null;default:30" json:"duration"`
	Timezone    string     `gorm:"size:64;default:'UTC'" json:"timezone"`
	MeetingURL  string     `gorm:"type:text" json:"meeting_url"`
	Status      string     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	IsQualified bool       `gorm:"default:false" json:"is_qualified"`
	Goals       string     `gorm:"type:text" json:"goals"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `gorm:"foreignKey:UserID" json:"-"`
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// EndsAt is the exclusive end of the meeting's time slot.
func (m *Meeting) EndsAt() time.Time {
	return m.ScheduledAt.Add(time.Duration(m.Duration) * time.Minute)
}
