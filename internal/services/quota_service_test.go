package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
)

func TestQuotaDefaultsToBasicCap(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	for i := 0; i < BasicMeetingLimit; i++ {
		_, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
			ScheduledAt: base.Add(time.Duration(i) * 2 * time.Hour), Duration: 30,
		})
		if err != nil {
			t.Fatalf("booking %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base.Add(100 * time.Hour), Duration: 30,
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestQuotaPlanNameSubstringMatch(t *testing.T) {
	cases := []struct {
		plan      string
		limit     int
		unlimited bool
	}{
		{"Basic", BasicMeetingLimit, false},
		{"Pro", ProMeetingLimit, false},
		{"Pro Annual", ProMeetingLimit, false},
		{"Enterprise", 0, true},
		{"enterprise-legacy", 0, true},
		{"Unknown Tier", BasicMeetingLimit, false},
	}

	for _, tc := range cases {
		limit, unlimited := limitFor(tc.plan)
		if limit != tc.limit || unlimited != tc.unlimited {
			t.Errorf("limitFor(%q) = (%d, %v), want (%d, %v)",
				tc.plan, limit, unlimited, tc.limit, tc.unlimited)
		}
	}
}

func TestQuotaUsesActiveSubscriptionPlan(t *testing.T) {
	db := newTestDB(t)
	quota := NewQuotaService(db)
	user := createTestUser(t, db, "pro@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")
	activateSubscription(t, db, user.ID, plan.ID)

	limits, err := quota.GetLimits(user.ID)
	if err != nil {
		t.Fatalf("GetLimits failed: %v", err)
	}
	if limits.Plan != "Pro" || limits.Limit != ProMeetingLimit {
		t.Fatalf("expected Pro/%d, got %s/%d", ProMeetingLimit, limits.Plan, limits.Limit)
	}
}

func TestQuotaUnlimitedEnterprise(t *testing.T) {
	db := newTestDB(t)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "ent@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Enterprise", "enterprise", "price_ent")
	activateSubscription(t, db, user.ID, plan.ID)
	ctx := context.Background()

	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	for i := 0; i < BasicMeetingLimit+3; i++ {
		_, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
			ScheduledAt: base.Add(time.Duration(i) * 2 * time.Hour), Duration: 30,
		})
		if err != nil {
			t.Fatalf("booking %d failed for unlimited plan: %v", i+1, err)
		}
	}
}

func TestQuotaResetsAtMonthBoundary(t *testing.T) {
	db := newTestDB(t)
	quota := NewQuotaService(db)
	svc := newTestMeetingService(db)
	user := createTestUser(t, db, "client@example.com", models.RoleClient)
	ctx := context.Background()

	// Fill the quota, then backdate those bookings into last month.
	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	for i := 0; i < BasicMeetingLimit; i++ {
		m, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
			ScheduledAt: base.Add(time.Duration(i) * 2 * time.Hour), Duration: 30,
		})
		if err != nil {
			t.Fatalf("booking %d failed: %v", i+1, err)
		}
		lastMonth := time.Now().UTC().AddDate(0, -1, 0)
		if err := db.Model(&models.Meeting{}).Where("id = ?", m.ID).
			Update("created_at", lastMonth).Error; err != nil {
			t.Fatalf("failed to backdate meeting: %v", err)
		}
	}

	limits, err := quota.GetLimits(user.ID)
	if err != nil {
		t.Fatalf("GetLimits failed: %v", err)
	}
	if limits.Used != 0 || !limits.CanCreate {
		t.Fatalf("last month's usage should not count: used=%d canCreate=%v", limits.Used, limits.CanCreate)
	}

	// The same account can book again in the new month.
	if _, err := svc.Create(ctx, user.ID, &dto.CreateMeetingRequest{
		ScheduledAt: base.Add(200 * time.Hour), Duration: 30,
	}); err != nil {
		t.Fatalf("new month booking should succeed: %v", err)
	}
}

func TestQuotaExpiredSubscriptionFallsBackToBasic(t *testing.T) {
	db := newTestDB(t)
	quota := NewQuotaService(db)
	user := createTestUser(t, db, "lapsed@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")

	past := time.Now().Add(-24 * time.Hour)
	sub := activateSubscription(t, db, user.ID, plan.ID)
	if err := db.Model(sub).Update("current_period_end", past).Error; err != nil {
		t.Fatalf("failed to expire subscription: %v", err)
	}

	limits, err := quota.GetLimits(user.ID)
	if err != nil {
		t.Fatalf("GetLimits failed: %v", err)
	}
	if limits.Limit != BasicMeetingLimit {
		t.Fatalf("expired subscription should fall back to basic cap, got %d", limits.Limit)
	}
}
