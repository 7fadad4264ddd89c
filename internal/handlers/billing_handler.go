package handlers

import (
	"errors"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/consultbridge/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	billingService *services.BillingService
}

func NewBillingHandler(billingService *services.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

func (h *BillingHandler) Plans(c *fiber.Ctx) error {
	plans, err := h.billingService.Plans()
	if err != nil {
		return internalError(c, "Failed to load plans")
	}
	return c.JSON(plans)
}

func (h *BillingHandler) CreateCheckout(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.billingService.CreateCheckout(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPrice), errors.Is(err, services.ErrPlanNotFound):
			return badRequest(c, err.Error())
		default:
			return internalError(c, "Failed to create checkout session")
		}
	}
	return c.JSON(resp)
}

func (h *BillingHandler) CheckPaymentStatus(c *fiber.Ctx) error {
	if _, err := scope.GetUserID(c); err != nil {
		return unauthorized(c)
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		return badRequest(c, "session_id is required")
	}

	resp, err := h.billingService.CheckPaymentStatus(sessionID)
	if err != nil {
		return internalError(c, "Failed to check payment status")
	}
	return c.JSON(resp)
}

func (h *BillingHandler) ConfirmPayment(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.billingService.ConfirmPayment(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "Failed to confirm payment")
	}
	return c.JSON(resp)
}

func (h *BillingHandler) UserSubscription(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	sub, err := h.billingService.UserSubscription(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoSubscription) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "Failed to load subscription")
	}
	return c.JSON(sub)
}
