package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateMeetingRequest struct {
	Title       string    `json:"title" validate:"omitempty,max=255"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Duration    int       `json:"duration" validate:"omitempty,min=1,max=720"`
	Timezone    string    `json:"timezone" validate:"omitempty,max=64"`
	Goals       string    `json:"goals"`
}

type UpdateMeetingRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Duration    *int       `json:"duration" validate:"omitempty,min=1,max=720"`
	Timezone    *string    `json:"timezone" validate:"omitempty,max=64"`
	Goals       *string    `json:"goals"`
	Notes       *string    `json:"notes"`
	Status      *string    `json:"status" validate:"omitempty,oneof=cancelled"`
}

type CheckAvailabilityRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Duration    int       `json:"duration" validate:"omitempty,min=1,max=720"`
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type MeetingLimitsResponse struct {
	Plan      string `json:"plan"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	CanCreate bool   `json:"can_create"`
}

type JoinMeetingResponse struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	Provider   string    `json:"provider"`
	MeetingURL string    `json:"meeting_url"`
	RoomName   string    `json:"room_name"`
	Domain     string    `json:"domain,omitempty"`
	Token      string    `json:"token,omitempty"`
}
