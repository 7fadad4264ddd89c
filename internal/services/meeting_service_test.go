package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestCreateMeetingRejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)

	if _, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base, Duration: 60,
	}); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// Starts inside the existing slot.
	_, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base.Add(30 * time.Minute), Duration: 30,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// Ends inside the existing slot.
	_, err = svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base.Add(-15 * time.Minute), Duration: 30,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for leading overlap, got %v", err)
	}

	// Back to back is fine: slots are half open.
	if _, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base.Add(60 * time.Minute), Duration: 30,
	}); err != nil {
		t.Fatalf("adjacent booking should succeed: %v", err)
	}
}

func TestCancelledMeetingsDoNotBlockSlots(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	m, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{ScheduledAt: base, Duration: 60})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	cancelled := models.MeetingCancelled
	if _, err := svc.Update(user.ID, m.ID, &dto.UpdateMeetingRequest{Status: &cancelled}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{ScheduledAt: base, Duration: 60}); err != nil {
		t.Fatalf("slot freed by cancellation should be bookable: %v", err)
	}
}

func TestHostConflictsCountAgainstHost(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	client := createTestUser(t, db, "client@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	m, err := svc.Create(ctx, client.ID, &dto.CreateMeetingRequest{ScheduledAt: base, Duration: 60})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, m.ID, host.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	resp, err := svc.CheckAvailability(host.ID, &dto.CheckAvailabilityRequest{
		ScheduledAt: base.Add(30 * time.Minute), Duration: 30,
	})
	if err != nil {
		t.Fatalf("availability check failed: %v", err)
	}
	if resp.Available {
		t.Fatal("host should be busy during a meeting they confirmed")
	}
}

func TestRoomURLAssignedOnConfirmAndStable(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	client := createTestUser(t, db, "client@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)
	ctx := context.Background()

	m, err := svc.Create(ctx, client.ID, &dto.CreateMeetingRequest{
		Title:       "Kickoff Call",
		ScheduledAt: time.Now().Add(time.Hour),
		Duration:    30,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if m.MeetingURL != "" {
		t.Fatalf("pending meeting must not have a room URL, got %q", m.MeetingURL)
	}

	confirmed, err := svc.Confirm(ctx, m.ID, host.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.MeetingURL == "" {
		t.Fatal("confirmed meeting must have a room URL")
	}
	if !strings.HasPrefix(confirmed.MeetingURL, "https://meet.example.com/") {
		t.Fatalf("unexpected room URL %q", confirmed.MeetingURL)
	}

	started, err := svc.Start(ctx, m.ID, host.ID, models.RoleHost)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if started.MeetingURL != confirmed.MeetingURL {
		t.Fatalf("room URL changed on start: %q -> %q", confirmed.MeetingURL, started.MeetingURL)
	}

	// A second confirm is rejected rather than re-provisioning.
	if _, err := svc.Confirm(ctx, m.ID, host.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMeetingLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	client := createTestUser(t, db, "client@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)
	ctx := context.Background()

	m, err := svc.Create(ctx, client.ID, &dto.CreateMeetingRequest{
		ScheduledAt: time.Now().Add(time.Hour), Duration: 45,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Ending before starting is invalid.
	if _, err := svc.End(m.ID, client.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition ending a pending meeting, got %v", err)
	}

	if _, err := svc.Confirm(ctx, m.ID, host.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := svc.Start(ctx, m.ID, host.ID, models.RoleHost); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done, err := svc.End(m.ID, host.ID, "went well")
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if done.Status != models.MeetingCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	var stored models.Meeting
	if err := db.First(&stored, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Notes != "went well" {
		t.Fatalf("notes not persisted, got %q", stored.Notes)
	}
}

func TestExpireStalePendingScoping(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)

	// Any pending meeting whose start time has passed is swept.
	stale := seedMeeting(t, db, user.ID, models.MeetingPending, time.Now().Add(-2*time.Hour))
	barelyLate := seedMeeting(t, db, user.ID, models.MeetingPending, time.Now().Add(-30*time.Minute))
	upcoming := seedMeeting(t, db, user.ID, models.MeetingPending, time.Now().Add(time.Hour))
	confirmedPast := seedMeeting(t, db, user.ID, models.MeetingConfirmed, time.Now().Add(-3*time.Hour))

	if _, err := svc.List(user.ID, models.RoleClient); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	assertStatus(t, db, stale, models.MeetingExpired)
	assertStatus(t, db, barelyLate, models.MeetingExpired)
	assertStatus(t, db, upcoming, models.MeetingPending)
	assertStatus(t, db, confirmedPast, models.MeetingConfirmed)
}

func TestStartRequiresHostRole(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	client := createTestUser(t, db, "client@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)
	ctx := context.Background()

	m, err := svc.Create(ctx, client.ID, &dto.CreateMeetingRequest{
		ScheduledAt: time.Now().Add(time.Hour), Duration: 30,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, m.ID, host.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// The booking client cannot start their own meeting.
	if _, err := svc.Start(ctx, m.ID, client.ID, models.RoleClient); !errors.Is(err, ErrHostOnly) {
		t.Fatalf("expected ErrHostOnly, got %v", err)
	}
	assertStatus(t, db, m.ID, models.MeetingConfirmed)

	if _, err := svc.Start(ctx, m.ID, host.ID, models.RoleHost); err != nil {
		t.Fatalf("host start failed: %v", err)
	}
}

func TestStartAllowsRescheduledMeetings(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	client := createTestUser(t, db, "client@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)
	ctx := context.Background()

	m, err := svc.Create(ctx, client.ID, &dto.CreateMeetingRequest{
		ScheduledAt: time.Now().Add(time.Hour), Duration: 30,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, m.ID, host.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	later := time.Now().Add(3 * time.Hour)
	moved, err := svc.Update(client.ID, m.ID, &dto.UpdateMeetingRequest{ScheduledAt: &later})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if moved.Status != models.MeetingRescheduled {
		t.Fatalf("expected rescheduled, got %s", moved.Status)
	}

	started, err := svc.Start(ctx, m.ID, host.ID, models.RoleHost)
	if err != nil {
		t.Fatalf("rescheduled meeting should be startable: %v", err)
	}
	if started.Status != models.MeetingStarted {
		t.Fatalf("expected started, got %s", started.Status)
	}
}

func TestListScopedByRole(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	alice := createTestUser(t, db, "alice@example.com", models.RoleClient)
	bob := createTestUser(t, db, "bob@example.com", models.RoleClient)
	host := createTestUser(t, db, "host@example.com", models.RoleHost)

	seedMeeting(t, db, alice.ID, models.MeetingPending, time.Now().Add(time.Hour))
	seedMeeting(t, db, bob.ID, models.MeetingPending, time.Now().Add(2*time.Hour))

	mine, err := svc.List(alice.ID, models.RoleClient)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("client should only see own meetings, got %d", len(mine))
	}

	all, err := svc.List(host.ID, models.RoleHost)
	if err != nil {
		t.Fatalf("host list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("host should see all meetings, got %d", len(all))
	}
}

func TestRescheduleChecksConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	first, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{ScheduledAt: base, Duration: 60})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	second, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{ScheduledAt: base.Add(2 * time.Hour), Duration: 60})
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	clash := base.Add(30 * time.Minute)
	if _, err := svc.Update(user.ID, second.ID, &dto.UpdateMeetingRequest{ScheduledAt: &clash}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on clashing reschedule, got %v", err)
	}

	// A meeting excludes itself from its own conflict check.
	nudge := base.Add(30 * time.Minute)
	if _, err := svc.Update(user.ID, first.ID, &dto.UpdateMeetingRequest{ScheduledAt: &nudge}); err != nil {
		t.Fatalf("self-overlapping reschedule should succeed: %v", err)
	}
}

func seedMeeting(t *testing.T, db *gorm.DB, userID uuid.UUID, status string, at time.Time) uuid.UUID {
	t.Helper()
	m := models.Meeting{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Consultation Meeting",
		ScheduledAt: at,
		Duration:    30,
		Timezone:    "UTC",
		Status:      status,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to seed meeting: %v", err)
	}
	return m.ID
}

func assertStatus(t *testing.T, db *gorm.DB, id uuid.UUID, want string) {
	t.Helper()
	var m models.Meeting
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if m.Status != want {
		t.Fatalf("meeting %s: expected status %s, got %s", id, want, m.Status)
	}
}
