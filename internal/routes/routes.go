package routes

import (
	"time"

	"github.com/consultbridge/backend/internal/config"
	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/handlers"
	"github.com/consultbridge/backend/internal/middleware"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	meetingHandler *handlers.MeetingHandler,
	onboardingHandler *handlers.OnboardingHandler,
	billingHandler *handlers.BillingHandler,
	webhookHandler *handlers.WebhookHandler,
	supportHandler *handlers.SupportHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/csrf", authHandler.CSRF)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Get("/auth/user", middleware.JWTProtected(cfg), authHandler.CurrentUser)
	api.Put("/auth/profile", middleware.JWTProtected(cfg), authHandler.UpdateProfile)

	// Meetings (protected)
	meetings := api.Group("/meetings", middleware.JWTProtected(cfg))
	meetings.Get("/", meetingHandler.List)
	meetings.Post("/", meetingHandler.Create)
	meetings.Get("/active", meetingHandler.Active)
	meetings.Post("/check-availability", meetingHandler.CheckAvailability)
	meetings.Get("/limits", meetingHandler.Limits)
	meetings.Get("/:id", meetingHandler.Get)
	meetings.Put("/:id", meetingHandler.Update)
	meetings.Post("/:id/confirm", middleware.HostRequired(db), meetingHandler.Confirm)
	meetings.Post("/:id/start", middleware.HostRequired(db), meetingHandler.Start)
	meetings.Post("/:id/end", meetingHandler.End)
	meetings.Get("/:id/join", meetingHandler.Join)

	// Onboarding (protected)
	onboarding := api.Group("/onboarding", middleware.JWTProtected(cfg))
	onboarding.Get("/steps", onboardingHandler.Steps)
	onboarding.Get("/status", onboardingHandler.Status)
	onboarding.Post("/company", onboardingHandler.SaveCompany)
	onboarding.Post("/meeting", onboardingHandler.SaveMeeting)
	onboarding.Post("/update-step", onboardingHandler.UpdateStep)
	onboarding.Post("/update-payment-info", onboardingHandler.UpdatePaymentInfo)
	onboarding.Post("/complete", onboardingHandler.Complete)

	// Subscriptions. Checkout creation carries a per-account cooldown so a
	// double-clicking user cannot spray Stripe with duplicate sessions.
	subs := api.Group("/subscriptions")
	subs.Get("/plans", billingHandler.Plans)
	subs.Post("/webhook", webhookHandler.HandleStripe)
	subs.Post("/create-checkout-session",
		middleware.JWTProtected(cfg),
		limiter.New(limiter.Config{
			Max:        1,
			Expiration: 10 * time.Second,
			KeyGenerator: func(c *fiber.Ctx) string {
				if userID, err := scope.GetUserID(c); err == nil {
					return "checkout:" + userID.String()
				}
				return "checkout:" + c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
					Error: true, Message: "Please wait before creating another payment session",
				})
			},
		}),
		billingHandler.CreateCheckout)
	subs.Get("/check-payment-status", middleware.JWTProtected(cfg), billingHandler.CheckPaymentStatus)
	subs.Post("/confirm-payment", middleware.JWTProtected(cfg), billingHandler.ConfirmPayment)
	subs.Get("/user-subscription", middleware.JWTProtected(cfg), billingHandler.UserSubscription)

	// Support (protected)
	support := api.Group("/support", middleware.JWTProtected(cfg))
	support.Post("/conversations", supportHandler.CreateConversation)
	support.Get("/conversations", supportHandler.ListConversations)
	support.Get("/conversations/:id", supportHandler.GetConversation)
	support.Post("/conversations/:id/messages", supportHandler.AddMessage)
	support.Post("/conversations/:id/resolve", supportHandler.Resolve)
	support.Post("/conversations/:id/reopen", supportHandler.Reopen)
	support.Get("/articles", supportHandler.ListArticles)
	support.Get("/articles/categories", supportHandler.CategoryCounts)
	support.Get("/articles/:slug", supportHandler.GetArticle)

	// Knowledge-base management (staff only)
	staff := support.Group("/admin", middleware.StaffRequired(db, cfg))
	staff.Post("/articles", supportHandler.CreateArticle)
	staff.Put("/articles/:id", supportHandler.UpdateArticle)
	staff.Delete("/articles/:id", supportHandler.DeleteArticle)
}
