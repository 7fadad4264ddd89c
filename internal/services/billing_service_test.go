package services

import (
	"errors"
	"testing"
	"time"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"
)

func newTestBillingService(db *gorm.DB) *BillingService {
	onboarding := NewOnboardingService(db, newTestMeetingService(db))
	return NewBillingService(db, testConfig(), onboarding)
}

func TestUpsertSubscriptionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")

	periodEnd := time.Now().Add(30 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		if err := billing.upsertSubscription(user.ID, plan.ID, models.SubscriptionActive, "sub_123", &periodEnd); err != nil {
			t.Fatalf("upsert %d failed: %v", i+1, err)
		}
	}

	var count int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("replayed upserts must keep a single row, got %d", count)
	}
}

func TestUpsertSubscriptionSwitchesPlan(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	basic := createTestPlan(t, db, "Basic", "basic", "price_basic")
	pro := createTestPlan(t, db, "Pro", "pro", "price_pro")

	if err := billing.upsertSubscription(user.ID, basic.ID, models.SubscriptionActive, "sub_1", nil); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := billing.upsertSubscription(user.ID, pro.ID, models.SubscriptionActive, "sub_2", nil); err != nil {
		t.Fatalf("upgrade upsert failed: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if sub.PlanID != pro.ID || sub.StripeSubscriptionID != "sub_2" {
		t.Fatalf("upgrade not applied: plan=%s stripe_id=%s", sub.PlanID, sub.StripeSubscriptionID)
	}
}

func TestSubscriptionDeletedForUnknownIDIsNoOp(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)

	err := billing.handleSubscriptionDeleted(&stripe.Subscription{ID: "sub_never_seen"})
	if err != nil {
		t.Fatalf("unknown subscription deletion must be acknowledged, got %v", err)
	}
}

func TestSubscriptionDeletedMarksCanceled(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")

	if err := billing.upsertSubscription(user.ID, plan.ID, models.SubscriptionActive, "sub_live", nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := billing.handleSubscriptionDeleted(&stripe.Subscription{ID: "sub_live"}); err != nil {
		t.Fatalf("deletion handling failed: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if sub.Status != models.SubscriptionCanceled {
		t.Fatalf("expected canceled, got %s", sub.Status)
	}
}

func TestConfirmPaymentFromLocalMirror(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")
	activateSubscription(t, db, user.ID, plan.ID)

	resp, err := billing.ConfirmPayment(user.ID, &dto.ConfirmPaymentRequest{})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !resp.Confirmed || resp.Source != "database" {
		t.Fatalf("expected confirmation from database, got confirmed=%v source=%s", resp.Confirmed, resp.Source)
	}
	if resp.Subscription == nil || resp.Subscription.Plan.Slug != "pro" {
		t.Fatal("confirmation should include the subscription and plan")
	}
}

func TestConfirmPaymentTrustsPlanID(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	plan := createTestPlan(t, db, "Pro", "pro", "price_pro")

	resp, err := billing.ConfirmPayment(user.ID, &dto.ConfirmPaymentRequest{PlanID: plan.ID.String()})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !resp.Confirmed || resp.Source != "plan" {
		t.Fatalf("expected confirmation from plan id, got confirmed=%v source=%s", resp.Confirmed, resp.Source)
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("subscription not created: %v", err)
	}
	if sub.PlanID != plan.ID || sub.Status != models.SubscriptionActive {
		t.Fatalf("unexpected subscription: plan=%s status=%s", sub.PlanID, sub.Status)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.After(time.Now()) {
		t.Fatal("trusted plan grant must carry a future period end")
	}

	// Payment completes the onboarding wizard too.
	var progress models.OnboardingProgress
	if err := db.Where("user_id = ?", user.ID).First(&progress).Error; err != nil {
		t.Fatalf("progress not found: %v", err)
	}
	if !progress.IsComplete {
		t.Fatal("plan confirmation must finish onboarding")
	}
}

func TestConfirmPaymentTrustsPlanSlug(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)
	createTestPlan(t, db, "Pro", "pro", "price_pro")

	resp, err := billing.ConfirmPayment(user.ID, &dto.ConfirmPaymentRequest{PlanID: "pro"})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !resp.Confirmed || resp.Source != "plan" {
		t.Fatalf("expected confirmation from plan slug, got confirmed=%v source=%s", resp.Confirmed, resp.Source)
	}
}

func TestConfirmPaymentUnknownPlanID(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "payer@example.com", models.RoleClient)

	resp, err := billing.ConfirmPayment(user.ID, &dto.ConfirmPaymentRequest{PlanID: uuid.NewString()})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if resp.Confirmed || resp.Source != "none" {
		t.Fatalf("unknown plan ids must not grant access, got confirmed=%v source=%s", resp.Confirmed, resp.Source)
	}
}

func TestConfirmPaymentWithNothingToConfirm(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "broke@example.com", models.RoleClient)

	resp, err := billing.ConfirmPayment(user.ID, &dto.ConfirmPaymentRequest{})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if resp.Confirmed {
		t.Fatal("nothing should confirm for an account with no payment anywhere")
	}
}

func TestPlansStaticFallback(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)

	plans, err := billing.Plans()
	if err != nil {
		t.Fatalf("Plans failed: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected static catalog of 3 plans, got %d", len(plans))
	}
	if plans[0].Slug != "basic" || plans[2].Slug != "enterprise" {
		t.Fatalf("unexpected static catalog order: %s .. %s", plans[0].Slug, plans[2].Slug)
	}
}

func TestPlansPreferDatabaseRows(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	createTestPlan(t, db, "Pro", "pro", "price_pro")

	plans, err := billing.Plans()
	if err != nil {
		t.Fatalf("Plans failed: %v", err)
	}
	if len(plans) != 1 || plans[0].StripePriceID != "price_pro" {
		t.Fatalf("expected the seeded plan only, got %+v", plans)
	}
}

func TestUserSubscriptionNotFound(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)
	user := createTestUser(t, db, "free@example.com", models.RoleClient)

	_, err := billing.UserSubscription(user.ID)
	if !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("expected ErrNoSubscription, got %v", err)
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	db := newTestDB(t)
	billing := newTestBillingService(db)

	err := billing.HandleEvent(stripe.Event{Type: "customer.updated"})
	if err != nil {
		t.Fatalf("unknown event types must be acknowledged, got %v", err)
	}
}
