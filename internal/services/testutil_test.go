package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/consultbridge/backend/internal/config"
	"github.com/consultbridge/backend/internal/database"
	"github.com/consultbridge/backend/internal/models"
	"github.com/consultbridge/backend/internal/rooms"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
		FrontendURL:      "http://localhost:3000",
		JitsiDomain:      "meet.example.com",
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "x",
		Role:      role,
		FirstName: "Test",
		LastName:  "User",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func createTestPlan(t *testing.T, db *gorm.DB, name, slugStr, priceID string) *models.Plan {
	t.Helper()
	plan := models.Plan{
		ID:            uuid.New(),
		Name:          name,
		Slug:          slugStr,
		StripePriceID: priceID,
		PriceCents:    2900,
		Interval:      "month",
		IsActive:      true,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("failed to create test plan: %v", err)
	}
	return &plan
}

func activateSubscription(t *testing.T, db *gorm.DB, userID, planID uuid.UUID) *models.Subscription {
	t.Helper()
	periodEnd := time.Now().Add(30 * 24 * time.Hour)
	sub := models.Subscription{
		ID:               uuid.New(),
		UserID:           userID,
		PlanID:           planID,
		Status:           models.SubscriptionActive,
		CurrentPeriodEnd: &periodEnd,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
	return &sub
}

func newTestMeetingService(db *gorm.DB) *MeetingService {
	return NewMeetingService(db, NewQuotaService(db), rooms.NewJitsi("meet.example.com", "", ""))
}
