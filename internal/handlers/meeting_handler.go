package handlers

import (
	"errors"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/consultbridge/backend/internal/services"
	"github.com/consultbridge/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MeetingHandler struct {
	meetingService *services.MeetingService
	quotaService   *services.QuotaService
	authService    *services.AuthService
}

func NewMeetingHandler(meetingService *services.MeetingService, quotaService *services.QuotaService, authService *services.AuthService) *MeetingHandler {
	return &MeetingHandler{
		meetingService: meetingService,
		quotaService:   quotaService,
		authService:    authService,
	}
}

func (h *MeetingHandler) Create(c *fiber.Ctx) error {
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

	meeting, err := h.meetingService.Create(c.Context(), userID, &req)
	if err != nil {
		return meetingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(meeting)
}

func (h *MeetingHandler) List(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	meetings, err := h.meetingService.List(userID, scope.GetRole(c))
	if err != nil {
		return internalError(c, "Failed to list meetings")
	}
	return c.JSON(meetings)
}

func (h *MeetingHandler) Get(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	meeting, err := h.meetingService.Get(userID, scope.GetRole(c), meetingID)
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(meeting)
}

func (h *MeetingHandler) Update(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	var req dto.UpdateMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	meeting, err := h.meetingService.Update(userID, meetingID, &req)
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(meeting)
}

// Confirm is host-only, enforced at the route level.
func (h *MeetingHandler) Confirm(c *fiber.Ctx) error {
	hostID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	meeting, err := h.meetingService.Confirm(c.Context(), meetingID, hostID)
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(meeting)
}

// Start is host-only, enforced at the route level and again in the service.
func (h *MeetingHandler) Start(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	meeting, err := h.meetingService.Start(c.Context(), meetingID, userID, scope.GetRole(c))
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(meeting)
}

func (h *MeetingHandler) End(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&body)

	meeting, err := h.meetingService.End(meetingID, userID, body.Notes)
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(meeting)
}

func (h *MeetingHandler) Join(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting id")
	}

	displayName := scope.GetEmail(c)
	if user, uerr := h.authService.GetUser(userID); uerr == nil && user.FullName() != "" {
		displayName = user.FullName()
	}

	join, err := h.meetingService.JoinInfo(c.Context(), userID, scope.GetRole(c), meetingID, displayName)
	if err != nil {
		return meetingError(c, err)
	}
	return c.JSON(join)
}

func (h *MeetingHandler) Active(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	meetings, err := h.meetingService.ActiveMeetings(userID, scope.GetRole(c))
	if err != nil {
		return internalError(c, "Failed to list active meetings")
	}
	return c.JSON(meetings)
}

func (h *MeetingHandler) CheckAvailability(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CheckAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.meetingService.CheckAvailability(userID, &req)
	if err != nil {
		return internalError(c, "Failed to check availability")
	}
	return c.JSON(resp)
}

func (h *MeetingHandler) Limits(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	limits, err := h.quotaService.GetLimits(userID)
	if err != nil {
		return internalError(c, "Failed to load meeting limits")
	}
	return c.JSON(limits)
}

func meetingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrMeetingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrSlotTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrPastSchedule),
		errors.Is(err, services.ErrNoRoomYet):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrHostOnly):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}
