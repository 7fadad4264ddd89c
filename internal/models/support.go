package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationOpen     = "open"
	ConversationResolved = "resolved"

	SenderUser    = "USER"
	SenderSupport = "SUPPORT"
	SenderSystem  = "SYSTEM"
)

type SupportConversation struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Subject   string           `gorm:"not null;size:255" json:"subject"`
	Status    string           `gorm:"not null;default:'open';size:20;index" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []SupportMessage `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	User      User             `gorm:"foreignKey:UserID" json:"-"`
}

func (c *SupportConversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type SupportMessage struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Sender         string    `gorm:"not null;size:10" json:"sender"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m *SupportMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SupportArticle is a knowledge-base entry. Only published articles are
// visible to non-staff accounts.
type SupportArticle struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Slug        string    `gorm:"not null;size:280;uniqueIndex" json:"slug"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Content     string    `gorm:"type:text" json:"content"`
	IsPublished bool      `gorm:"default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *SupportArticle) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
