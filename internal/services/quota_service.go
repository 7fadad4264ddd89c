package services

import (
	"strings"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BasicMeetingLimit = 2
	ProMeetingLimit   = 11
)

// QuotaService gates meeting creation by subscription tier. Usage counts
// meetings created in the current calendar month, regardless of status.
type QuotaService struct {
	db *gorm.DB
}

func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

func (s *QuotaService) GetLimits(userID uuid.UUID) (*dto.MeetingLimitsResponse, error) {
	planName := s.planName(userID)
	limit, unlimited := limitFor(planName)

	used, err := s.monthlyCount(userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.MeetingLimitsResponse{
		Plan:      planName,
		Limit:     limit,
		Unlimited: unlimited,
		Used:      used,
	}
	if unlimited {
		resp.CanCreate = true
	} else {
		remaining := int64(limit) - used
		if remaining < 0 {
			remaining = 0
		}
		resp.Remaining = remaining
		resp.CanCreate = used < int64(limit)
	}
	return resp, nil
}

func (s *QuotaService) CanCreate(userID uuid.UUID) (bool, error) {
	limits, err := s.GetLimits(userID)
	if err != nil {
		return false, err
	}
	return limits.CanCreate, nil
}

// planName returns the active plan's name, or "basic" when the account has no
// active subscription.
func (s *QuotaService) planName(userID uuid.UUID) string {
	var sub models.Subscription
	err := s.db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		First(&sub).Error
	if err != nil || !sub.IsActive() {
		return "basic"
	}
	return sub.Plan.Name
}

func (s *QuotaService) monthlyCount(userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int64
	err := s.db.Model(&models.Meeting{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, monthStart, monthEnd).
		Count(&count).Error
	return count, err
}

// limitFor matches the plan name by substring so renamed tiers like
// "Pro Annual" still map to the right cap.
func limitFor(planName string) (limit int, unlimited bool) {
	name := strings.ToLower(planName)
	switch {
	case strings.Contains(name, "enterprise"):
		return 0, true
	case strings.Contains(name, "pro"):
		return ProMeetingLimit, false
	default:
		return BasicMeetingLimit, false
	}
}
