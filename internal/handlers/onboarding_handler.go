package handlers

import (
	"errors"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/consultbridge/backend/internal/services"
	"github.com/consultbridge/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type OnboardingHandler struct {
	onboardingService *services.OnboardingService
}

func NewOnboardingHandler(onboardingService *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService}
}

func (h *OnboardingHandler) Steps(c *fiber.Ctx) error {
	steps, err := h.onboardingService.Steps()
	if err != nil {
		return internalError(c, "Failed to load onboarding steps")
	}
	return c.JSON(steps)
}

func (h *OnboardingHandler) Status(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	status, err := h.onboardingService.Status(userID)
	if err != nil {
		return internalError(c, "Failed to load onboarding status")
	}
	return c.JSON(status)
}

func (h *OnboardingHandler) SaveCompany(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CompanyInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	progress, err := h.onboardingService.SaveCompany(userID, &req)
	if err != nil {
		return internalError(c, "Failed to save company info")
	}
	return c.JSON(progress)
}

func (h *OnboardingHandler) SaveMeeting(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	meeting, err := h.onboardingService.SaveMeeting(c.Context(), userID, &req)
	if err != nil {
		return meetingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(meeting)
}

func (h *OnboardingHandler) UpdateStep(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdateStepRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	progress, err := h.onboardingService.UpdateStep(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrStepNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "Failed to update step")
	}
	return c.JSON(progress)
}

func (h *OnboardingHandler) UpdatePaymentInfo(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.PaymentInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	progress, err := h.onboardingService.UpdatePaymentInfo(userID, &req)
	if err != nil {
		return internalError(c, "Failed to save payment info")
	}
	return c.JSON(progress)
}

func (h *OnboardingHandler) Complete(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	progress, err := h.onboardingService.Complete(userID)
	if err != nil {
		return internalError(c, "Failed to complete onboarding")
	}
	return c.JSON(progress)
}
