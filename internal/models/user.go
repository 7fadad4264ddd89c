package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleClient = "client"
	RoleHost   = "host"
)

// User is an account on the platform. Clients book meetings and subscribe;
// hosts run meetings; staff additionally manage support content.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password         string         `gorm:"not null" json:"-"`
	Role             string         `gorm:"size:20;default:'client'" json:"role"`
	IsStaff          bool           `gorm:"default:false" json:"is_staff"`
	FirstName        string         `gorm:"size:100" json:"first_name"`
	LastName         string         `gorm:"size:100" json:"last_name"`
	CompanyName      string         `gorm:"size:255" json:"company_name"`
	JobTitle         string         `gorm:"size:255" json:"job_title"`
	Industry         string         `gorm:"size:255" json:"industry"`
	Avatar           string         `gorm:"type:text" json:"avatar"`
	StripeCustomerID string         `gorm:"size:255;index" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
