package handlers

import (
	"log/slog"

	"github.com/consultbridge/backend/internal/config"
	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v72/webhook"
)

type WebhookHandler struct {
	billingService *services.BillingService
	cfg            *config.Config
}

func NewWebhookHandler(billingService *services.BillingService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{billingService: billingService, cfg: cfg}
}

// HandleStripe verifies the event signature and dispatches it. Once the
// signature checks out the response is always 200: processing failures are
// logged for the audit trail instead of triggering Stripe retries.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), h.cfg.StripeWebhookSecret)
	if err != nil {
		slog.Error("webhook signature verification failed", "component", "billing",
			"action", "webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook signature",
		})
	}

	if err := h.billingService.HandleEvent(event); err != nil {
		slog.Error("webhook processing failed", "component", "billing",
			"action", "webhook", "event_type", string(event.Type), "event_id", event.ID, "error", err)
	} else {
		slog.Info("webhook processed", "component", "billing",
			"event_type", string(event.Type), "event_id", event.ID)
	}

	return c.JSON(fiber.Map{"received": true})
}
