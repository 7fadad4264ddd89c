package dto

import (
	"time"

	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
)

type CompanyInfoRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=255"`
	JobTitle    string `json:"job_title" validate:"omitempty,max=255"`
	Industry    string `json:"industry" validate:"omitempty,max=255"`
	TeamSize    string `json:"team_size" validate:"omitempty,max=50"`
}

type UpdateStepRequest struct {
	StepID uuid.UUID              `json:"step_id" validate:"required"`
	Data   map[string]interface{} `json:"data"`
}

type PaymentInfoRequest struct {
	SessionID string `json:"session_id"`
	PriceID   string `json:"price_id"`
	Completed bool   `json:"completed"`
}

type OnboardingStatusResponse struct {
	IsComplete  bool                    `json:"is_complete"`
	CompletedAt *time.Time              `json:"completed_at"`
	CurrentStep *models.OnboardingStep  `json:"current_step"`
	Steps       []models.OnboardingStep `json:"steps"`
	Data        map[string]interface{}  `json:"data"`
}
