package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrStepNotFound = errors.New("onboarding step not found")

// OnboardingService tracks each account's position in the setup wizard.
// Progress carries a JSON bag the frontend writes step payloads into; the
// per-step completion flags inside it are advisory and not cross-checked
// against step order.
type OnboardingService struct {
	db       *gorm.DB
	meetings *MeetingService
}

func NewOnboardingService(db *gorm.DB, meetings *MeetingService) *OnboardingService {
	return &OnboardingService{db: db, meetings: meetings}
}

func (s *OnboardingService) Steps() ([]models.OnboardingStep, error) {
	var steps []models.OnboardingStep
	err := s.db.Where("is_active = ?", true).Order("step_order ASC").Find(&steps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list onboarding steps: %w", err)
	}
	return steps, nil
}

// GetOrInit returns the account's progress row, creating one pointed at the
// first active step on first touch.
func (s *OnboardingService) GetOrInit(userID uuid.UUID) (*models.OnboardingProgress, error) {
	var progress models.OnboardingProgress
	err := s.db.Where("user_id = ?", userID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load onboarding progress: %w", err)
	}

	progress = models.OnboardingProgress{
		ID:     uuid.New(),
		UserID: userID,
		Data:   datatypes.JSON([]byte("{}")),
	}

	var first models.OnboardingStep
	if err := s.db.Where("is_active = ?", true).Order("step_order ASC").First(&first).Error; err == nil {
		progress.CurrentStepID = &first.ID
	}

	if err := s.db.Create(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to init onboarding progress: %w", err)
	}
	return &progress, nil
}

func (s *OnboardingService) Status(userID uuid.UUID) (*dto.OnboardingStatusResponse, error) {
	progress, err := s.GetOrInit(userID)
	if err != nil {
		return nil, err
	}

	steps, err := s.Steps()
	if err != nil {
		return nil, err
	}

	resp := &dto.OnboardingStatusResponse{
		IsComplete:  progress.IsComplete,
		CompletedAt: progress.CompletedAt,
		Steps:       steps,
		Data:        decodeBag(progress.Data),
	}

	if progress.CurrentStepID != nil {
		for i := range steps {
			if steps[i].ID == *progress.CurrentStepID {
				resp.CurrentStep = &steps[i]
				break
			}
		}
	}
	return resp, nil
}

// SaveCompany writes the company step: profile fields on the account plus the
// step payload and completion flag in the bag.
func (s *OnboardingService) SaveCompany(userID uuid.UUID, req *dto.CompanyInfoRequest) (*models.OnboardingProgress, error) {
	err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"company_name": req.CompanyName,
		"job_title":    req.JobTitle,
		"industry":     req.Industry,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save company profile: %w", err)
	}

	return s.mergeBag(userID, map[string]interface{}{
		"company_name":           req.CompanyName,
		"job_title":              req.JobTitle,
		"industry":               req.Industry,
		"team_size":              req.TeamSize,
		"company_step_completed": true,
	}, nil)
}

// SaveMeeting books the wizard's intro meeting through the scheduler and
// records the booking in the bag.
func (s *OnboardingService) SaveMeeting(ctx context.Context, userID uuid.UUID, req *dto.CreateMeetingRequest) (*models.Meeting, error) {
	meeting, err := s.meetings.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	_, err = s.mergeBag(userID, map[string]interface{}{
		"meeting_id":             meeting.ID.String(),
		"meeting_scheduled_at":   meeting.ScheduledAt,
		"meeting_step_completed": true,
	}, nil)
	if err != nil {
		return nil, err
	}
	return meeting, nil
}

func (s *OnboardingService) UpdatePaymentInfo(userID uuid.UUID, req *dto.PaymentInfoRequest) (*models.OnboardingProgress, error) {
	bag := map[string]interface{}{}
	if req.SessionID != "" {
		bag["checkout_session_id"] = req.SessionID
	}
	if req.PriceID != "" {
		bag["checkout_price_id"] = req.PriceID
	}
	if req.Completed {
		bag["payment_step_completed"] = true
	}
	return s.mergeBag(userID, bag, nil)
}

// UpdateStep moves the pointer to an arbitrary active step and merges the
// supplied payload into the bag.
func (s *OnboardingService) UpdateStep(userID uuid.UUID, req *dto.UpdateStepRequest) (*models.OnboardingProgress, error) {
	var step models.OnboardingStep
	if err := s.db.Where("id = ? AND is_active = ?", req.StepID, true).First(&step).Error; err != nil {
		return nil, ErrStepNotFound
	}
	return s.mergeBag(userID, req.Data, &step.ID)
}

// Complete marks onboarding finished. Idempotent: the completion timestamp is
// kept from the first call.
func (s *OnboardingService) Complete(userID uuid.UUID) (*models.OnboardingProgress, error) {
	progress, err := s.GetOrInit(userID)
	if err != nil {
		return nil, err
	}
	if progress.IsComplete {
		return progress, nil
	}

	now := time.Now()
	err = s.db.Model(progress).Updates(map[string]interface{}{
		"is_complete":  true,
		"completed_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	progress.IsComplete = true
	progress.CompletedAt = &now
	return progress, nil
}

// MarkComplete is the webhook-side completion used after a successful
// payment. Merges the flag and completes in one go.
func (s *OnboardingService) MarkComplete(userID uuid.UUID, source string) error {
	if _, err := s.mergeBag(userID, map[string]interface{}{
		"payment_step_completed": true,
		"completed_via":          source,
	}, nil); err != nil {
		return err
	}
	_, err := s.Complete(userID)
	return err
}

func (s *OnboardingService) mergeBag(userID uuid.UUID, data map[string]interface{}, stepID *uuid.UUID) (*models.OnboardingProgress, error) {
	progress, err := s.GetOrInit(userID)
	if err != nil {
		return nil, err
	}

	bag := decodeBag(progress.Data)
	for k, v := range data {
		bag[k] = v
	}

	encoded, err := json.Marshal(bag)
	if err != nil {
		return nil, fmt.Errorf("failed to encode onboarding data: %w", err)
	}

	updates := map[string]interface{}{"data": datatypes.JSON(encoded)}
	if stepID != nil {
		updates["current_step_id"] = *stepID
	}

	if err := s.db.Model(progress).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to save onboarding data: %w", err)
	}
	progress.Data = datatypes.JSON(encoded)
	if stepID != nil {
		progress.CurrentStepID = stepID
	}
	return progress, nil
}

func decodeBag(raw datatypes.JSON) map[string]interface{} {
	bag := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &bag)
	}
	return bag
}
