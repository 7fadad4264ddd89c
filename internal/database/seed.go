package database

import (
	"encoding/json"
	"log/slog"

	"github.com/consultbridge/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seed loads the plan catalog, onboarding steps and starter knowledge-base
// articles. Idempotent: existing rows are left alone.
func Seed(db *gorm.DB) error {
	if err := seedPlans(db); err != nil {
		return err
	}
	if err := seedSteps(db); err != nil {
		return err
	}
	return seedArticles(db)
}

func seedPlans(db *gorm.DB) error {
	plans := []models.Plan{
		{Name: "Basic", Slug: "basic", PriceCents: 2900, Interval: "month",
			Features: featureList("2 meetings per month", "Email support")},
		{Name: "Pro", Slug: "pro", PriceCents: 9900, Interval: "month",
			Features: featureList("11 meetings per month", "Priority support", "Meeting recordings")},
		{Name: "Enterprise", Slug: "enterprise", PriceCents: 29900, Interval: "month",
			Features: featureList("Unlimited meetings", "Dedicated support", "Custom integrations")},
	}

	for _, plan := range plans {
		var existing models.Plan
		if err := db.Where("slug = ?", plan.Slug).First(&existing).Error; err == nil {
			continue
		}
		plan.ID = uuid.New()
		plan.IsActive = true
		if err := db.Create(&plan).Error; err != nil {
			return err
		}
		slog.Info("seeded plan", "slug", plan.Slug)
	}
	return nil
}

func seedSteps(db *gorm.DB) error {
	steps := []models.OnboardingStep{
		{Name: "Account Setup", Description: "Create your account and verify your email.", Order: 1},
		{Name: "Company Info", Description: "Tell us about your company and role.", Order: 2},
		{Name: "Meeting Scheduling", Description: "Book your introduction meeting with a consultant.", Order: 3},
		{Name: "Payment", Description: "Choose a plan and set up billing.", Order: 4},
	}

	for _, step := range steps {
		var existing models.OnboardingStep
		if err := db.Where("name = ?", step.Name).First(&existing).Error; err == nil {
			continue
		}
		step.ID = uuid.New()
		step.IsActive = true
		if err := db.Create(&step).Error; err != nil {
			return err
		}
		slog.Info("seeded onboarding step", "name", step.Name)
	}
	return nil
}

func seedArticles(db *gorm.DB) error {
	articles := []models.SupportArticle{
		{
			Title:    "Getting started with your first meeting",
			Slug:     "getting-started-with-your-first-meeting",
			Category: "Meetings",
			Content: "Schedule your first consultation from the dashboard. Pick a time slot, " +
				"add your goals for the session, and a consultant will confirm within one business day. " +
				"Once confirmed you will see a join link on the meeting card.",
		},
		{
			Title:    "Understanding your meeting limits",
			Slug:     "understanding-your-meeting-limits",
			Category: "Billing",
			Content: "The Basic plan includes 2 meetings per calendar month and Pro includes 11. " +
				"Enterprise accounts have no limit. Usage resets on the first of each month.",
		},
		{
			Title:    "Updating your payment method",
			Slug:     "updating-your-payment-method",
			Category: "Billing",
			Content: "Payment details are managed securely through Stripe. Open the subscription " +
				"page and follow the billing portal link to change cards or download invoices.",
		},
		{
			Title:    "Troubleshooting video connection issues",
			Slug:     "troubleshooting-video-connection-issues",
			Category: "Meetings",
			Content: "If your video room will not load, check that your browser allows camera and " +
				"microphone access, then reload the join link from the meeting page. A meeting only " +
				"gets its room link after a consultant confirms it.",
		},
	}

	for _, article := range articles {
		var existing models.SupportArticle
		if err := db.Where("slug = ?", article.Slug).First(&existing).Error; err == nil {
			continue
		}
		article.ID = uuid.New()
		article.IsPublished = true
		if err := db.Create(&article).Error; err != nil {
			return err
		}
		slog.Info("seeded article", "slug", article.Slug)
	}
	return nil
}

func featureList(features ...string) datatypes.JSON {
	b, _ := json.Marshal(features)
	return datatypes.JSON(b)
}
