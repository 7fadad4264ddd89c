package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/consultbridge/backend/internal/rooms"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrSlotTaken         = errors.New("the requested time slot is not available")
	ErrQuotaExceeded     = errors.New("monthly meeting limit reached for your plan")
	ErrInvalidTransition = errors.New("meeting is not in a state that allows this action")
	ErrPastSchedule      = errors.New("meetings must be scheduled in the future")
	ErrNotParticipant    = errors.New("you are not a participant of this meeting")
	ErrHostOnly          = errors.New("only hosts can start meetings")
	ErrNoRoomYet         = errors.New("meeting has no room assigned yet")
)

const (
	// maxDurationMinutes bounds a slot so the conflict look-back window is exact.
	maxDurationMinutes = 720
	defaultDuration    = 30
)

type MeetingService struct {
	db    *gorm.DB
	quota *QuotaService
	rooms rooms.Provider
}

func NewMeetingService(db *gorm.DB, quota *QuotaService, provider rooms.Provider) *MeetingService {
	return &MeetingService{db: db, quota: quota, rooms: provider}
}

func (s *MeetingService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateMeetingRequest) (*models.Meeting, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	if duration > maxDurationMinutes {
		return nil, fmt.Errorf("duration may not exceed %d minutes", maxDurationMinutes)
	}
	if req.ScheduledAt.Before(time.Now()) {
		return nil, ErrPastSchedule
	}

	ok, err := s.quota.CanCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check meeting quota: %w", err)
	}
	if !ok {
		return nil, ErrQuotaExceeded
	}

	conflict, err := s.hasConflict(userID, req.ScheduledAt, duration, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotTaken
	}

	meeting := models.Meeting{
		ID:          uuid.New(),
		UserID:      userID,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Duration:    duration,
		Goals:       req.Goals,
		Status:      models.MeetingPending,
	}
	if req.Title != "" {
		meeting.Title = req.Title
	} else {
		meeting.Title = "Consultation Meeting"
	}
	if req.Timezone != "" {
		meeting.Timezone = req.Timezone
	} else {
		meeting.Timezone = "UTC"
	}

	if err := s.db.Create(&meeting).Error; err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	slog.Info("meeting created", "component", "meetings",
		"meeting_id", meeting.ID, "user_id", userID, "scheduled_at", meeting.ScheduledAt)
	return &meeting, nil
}

// Confirm moves a pending or rescheduled meeting to confirmed, assigns the
// acting host, and provisions the room URL if the meeting has none.
func (s *MeetingService) Confirm(ctx context.Context, meetingID, hostID uuid.UUID) (*models.Meeting, error) {
	meeting, err := s.get(meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status != models.MeetingPending && meeting.Status != models.MeetingRescheduled {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":  models.MeetingConfirmed,
		"host_id": hostID,
	}

	if meeting.MeetingURL == "" {
		url, err := s.rooms.CreateRoom(ctx, meeting.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to provision room: %w", err)
		}
		updates["meeting_url"] = url
		meeting.MeetingURL = url
	}

	if err := s.db.Model(meeting).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to confirm meeting: %w", err)
	}
	meeting.Status = models.MeetingConfirmed
	meeting.HostID = &hostID

	slog.Info("meeting confirmed", "component", "meetings",
		"meeting_id", meeting.ID, "host_id", hostID)
	return meeting, nil
}

// Start moves a confirmed or rescheduled meeting to started. Hosts only.
// The room URL is provisioned here too in case confirmation happened before
// a provider was configured.
func (s *MeetingService) Start(ctx context.Context, meetingID, actorID uuid.UUID, role string) (*models.Meeting, error) {
	if role != models.RoleHost {
		return nil, ErrHostOnly
	}
	meeting, err := s.get(meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status != models.MeetingConfirmed && meeting.Status != models.MeetingRescheduled {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": models.MeetingStarted}
	if meeting.MeetingURL == "" {
		url, err := s.rooms.CreateRoom(ctx, meeting.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to provision room: %w", err)
		}
		updates["meeting_url"] = url
		meeting.MeetingURL = url
	}

	if err := s.db.Model(meeting).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to start meeting: %w", err)
	}
	meeting.Status = models.MeetingStarted

	slog.Info("meeting started", "component", "meetings",
		"meeting_id", meeting.ID, "host_id", actorID)
	return meeting, nil
}

func (s *MeetingService) End(meetingID, actorID uuid.UUID, notes string) (*models.Meeting, error) {
	meeting, err := s.get(meetingID)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(meeting, actorID) {
		return nil, ErrNotParticipant
	}
	if meeting.Status != models.MeetingStarted {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": models.MeetingCompleted}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := s.db.Model(meeting).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to end meeting: %w", err)
	}
	meeting.Status = models.MeetingCompleted
	return meeting, nil
}

// Update handles client-side edits: rescheduling re-runs the conflict check
// and moves confirmed meetings back through the rescheduled status; setting
// status=cancelled cancels.
func (s *MeetingService) Update(userID, meetingID uuid.UUID, req *dto.UpdateMeetingRequest) (*models.Meeting, error) {
	meeting, err := s.get(meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.UserID != userID {
		return nil, ErrNotParticipant
	}

	if req.Status != nil && *req.Status == models.MeetingCancelled {
		switch meeting.Status {
		case models.MeetingCompleted, models.MeetingCancelled, models.MeetingExpired:
			return nil, ErrInvalidTransition
		}
		if err := s.db.Model(meeting).Update("status", models.MeetingCancelled).Error; err != nil {
			return nil, fmt.Errorf("failed to cancel meeting: %w", err)
		}
		meeting.Status = models.MeetingCancelled
		return meeting, nil
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Goals != nil {
		updates["goals"] = *req.Goals
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}

	if req.ScheduledAt != nil || req.Duration != nil {
		switch meeting.Status {
		case models.MeetingPending, models.MeetingConfirmed, models.MeetingRescheduled:
		default:
			return nil, ErrInvalidTransition
		}

		newAt := meeting.ScheduledAt
		if req.ScheduledAt != nil {
			newAt = *req.ScheduledAt
		}
		newDur := meeting.Duration
		if req.Duration != nil {
			newDur = *req.Duration
		}
		if newDur > maxDurationMinutes {
			return nil, fmt.Errorf("duration may not exceed %d minutes", maxDurationMinutes)
		}
		if newAt.Before(time.Now()) {
			return nil, ErrPastSchedule
		}

		conflict, err := s.hasConflict(meeting.UserID, newAt, newDur, meeting.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrSlotTaken
		}

		updates["scheduled_at"] = newAt
		updates["duration"] = newDur
		if meeting.Status == models.MeetingConfirmed {
			updates["status"] = models.MeetingRescheduled
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(meeting).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update meeting: %w", err)
		}
	}
	return s.get(meetingID)
}

// List returns the caller's meetings; hosts see every meeting. The stale
// pending sweep runs first so callers never see overdue pending rows.
func (s *MeetingService) List(userID uuid.UUID, role string) ([]models.Meeting, error) {
	if err := s.ExpireStalePending(); err != nil {
		slog.Error("stale meeting sweep failed", "component", "meetings", "error", err)
	}

	var meetings []models.Meeting
	q := s.db.Order("scheduled_at DESC")
	if role != models.RoleHost {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

func (s *MeetingService) Get(userID uuid.UUID, role string, meetingID uuid.UUID) (*models.Meeting, error) {
	if err := s.ExpireStalePending(); err != nil {
		slog.Error("stale meeting sweep failed", "component", "meetings", "error", err)
	}

	meeting, err := s.get(meetingID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleHost && !s.isParticipant(meeting, userID) {
		return nil, ErrMeetingNotFound
	}
	return meeting, nil
}

// ActiveMeetings returns confirmed or started meetings whose start time is
// within the last 60 minutes, the set a host can join right now.
func (s *MeetingService) ActiveMeetings(userID uuid.UUID, role string) ([]models.Meeting, error) {
	if err := s.ExpireStalePending(); err != nil {
		slog.Error("stale meeting sweep failed", "component", "meetings", "error", err)
	}

	now := time.Now()
	q := s.db.
		Where("status IN ?", []string{models.MeetingConfirmed, models.MeetingStarted}).
		Where("scheduled_at <= ? AND scheduled_at >= ?", now, now.Add(-60*time.Minute)).
		Order("scheduled_at ASC")
	if role != models.RoleHost {
		q = q.Where("user_id = ?", userID)
	}

	var meetings []models.Meeting
	if err := q.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to list active meetings: %w", err)
	}
	return meetings, nil
}

func (s *MeetingService) CheckAvailability(userID uuid.UUID, req *dto.CheckAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	if duration > maxDurationMinutes {
		return &dto.AvailabilityResponse{Available: false, Reason: "duration too long"}, nil
	}
	if req.ScheduledAt.Before(time.Now()) {
		return &dto.AvailabilityResponse{Available: false, Reason: "slot is in the past"}, nil
	}

	conflict, err := s.hasConflict(userID, req.ScheduledAt, duration, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		return &dto.AvailabilityResponse{Available: false, Reason: "slot overlaps an existing meeting"}, nil
	}
	return &dto.AvailabilityResponse{Available: true}, nil
}

// JoinInfo returns the room connection details for a participant.
func (s *MeetingService) JoinInfo(ctx context.Context, userID uuid.UUID, role string, meetingID uuid.UUID, displayName string) (*dto.JoinMeetingResponse, error) {
	meeting, err := s.Get(userID, role, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.MeetingURL == "" {
		return nil, ErrNoRoomYet
	}

	join, err := s.rooms.Join(ctx, meeting.MeetingURL, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue join token: %w", err)
	}

	return &dto.JoinMeetingResponse{
		MeetingID:  meeting.ID,
		Provider:   join.Provider,
		MeetingURL: join.MeetingURL,
		RoomName:   join.RoomName,
		Domain:     join.Domain,
		Token:      join.Token,
	}, nil
}

// ExpireStalePending marks pending meetings whose start time has passed as
// expired. It runs lazily before reads instead of on a timer so no
// background job is needed.
func (s *MeetingService) ExpireStalePending() error {
	cutoff := time.Now()
	result := s.db.Model(&models.Meeting{}).
		Where("status = ? AND scheduled_at < ?", models.MeetingPending, cutoff).
		Update("status", models.MeetingExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		slog.Info("expired stale pending meetings", "component", "meetings", "count", result.RowsAffected)
	}
	return nil
}

// hasConflict reports whether [at, at+duration) intersects any live meeting
// the account participates in, as booker or host. Candidates start at most
// maxDurationMinutes before the requested slot, which is exact because no
// meeting may be longer than that.
func (s *MeetingService) hasConflict(userID uuid.UUID, at time.Time, duration int, excludeID uuid.UUID) (bool, error) {
	windowStart := at.Add(-maxDurationMinutes * time.Minute)
	end := at.Add(time.Duration(duration) * time.Minute)

	var candidates []models.Meeting
	q := s.db.
		Where("(user_id = ? OR host_id = ?)", userID, userID).
		Where("status NOT IN ?", []string{models.MeetingCancelled, models.MeetingExpired}).
		Where("scheduled_at >= ? AND scheduled_at < ?", windowStart, end)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&candidates).Error; err != nil {
		return false, fmt.Errorf("failed to query conflicting meetings: %w", err)
	}

	for _, m := range candidates {
		if m.ScheduledAt.Before(end) && m.EndsAt().After(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MeetingService) get(meetingID uuid.UUID) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := s.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		return nil, ErrMeetingNotFound
	}
	return &meeting, nil
}

func (s *MeetingService) isParticipant(m *models.Meeting, userID uuid.UUID) bool {
	if m.UserID == userID {
		return true
	}
	return m.HostID != nil && *m.HostID == userID
}
