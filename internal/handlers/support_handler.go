package handlers

import (
	"errors"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/consultbridge/backend/internal/services"
	"github.com/consultbridge/backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SupportHandler struct {
	supportService *services.SupportService
}

func NewSupportHandler(supportService *services.SupportService) *SupportHandler {
	return &SupportHandler{supportService: supportService}
}

func (h *SupportHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	conv, err := h.supportService.CreateConversation(userID, &req)
	if err != nil {
		return internalError(c, "Failed to create conversation")
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *SupportHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	convs, err := h.supportService.ListConversations(userID, scope.IsStaff(c))
	if err != nil {
		return internalError(c, "Failed to list conversations")
	}
	return c.JSON(convs)
}

func (h *SupportHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation id")
	}

	conv, err := h.supportService.GetConversation(userID, scope.IsStaff(c), convID)
	if err != nil {
		return supportError(c, err)
	}
	return c.JSON(conv)
}

func (h *SupportHandler) AddMessage(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation id")
	}

	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	msg, err := h.supportService.AddMessage(userID, scope.IsStaff(c), convID, &req)
	if err != nil {
		return supportError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *SupportHandler) Resolve(c *fiber.Ctx) error {
	return h.setStatus(c, h.supportService.Resolve)
}

func (h *SupportHandler) Reopen(c *fiber.Ctx) error {
	return h.setStatus(c, h.supportService.Reopen)
}

func (h *SupportHandler) setStatus(c *fiber.Ctx, fn func(uuid.UUID, bool, uuid.UUID) (*models.SupportConversation, error)) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation id")
	}

	conv, err := fn(userID, scope.IsStaff(c), convID)
	if err != nil {
		return supportError(c, err)
	}
	return c.JSON(conv)
}

func (h *SupportHandler) ListArticles(c *fiber.Ctx) error {
	articles, err := h.supportService.ListArticles(c.Query("search"), c.Query("category"))
	if err != nil {
		return internalError(c, "Failed to list articles")
	}
	return c.JSON(articles)
}

func (h *SupportHandler) GetArticle(c *fiber.Ctx) error {
	article, err := h.supportService.GetArticle(c.Params("slug"))
	if err != nil {
		return supportError(c, err)
	}
	return c.JSON(article)
}

func (h *SupportHandler) CategoryCounts(c *fiber.Ctx) error {
	counts, err := h.supportService.CategoryCounts()
	if err != nil {
		return internalError(c, "Failed to load categories")
	}
	return c.JSON(counts)
}

func (h *SupportHandler) CreateArticle(c *fiber.Ctx) error {
	var req dto.CreateArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	article, err := h.supportService.CreateArticle(&req)
	if err != nil {
		return supportError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

func (h *SupportHandler) UpdateArticle(c *fiber.Ctx) error {
	articleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid article id")
	}

	var req dto.UpdateArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	article, err := h.supportService.UpdateArticle(articleID, &req)
	if err != nil {
		return supportError(c, err)
	}
	return c.JSON(article)
}

func (h *SupportHandler) DeleteArticle(c *fiber.Ctx) error {
	articleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid article id")
	}

	if err := h.supportService.DeleteArticle(articleID); err != nil {
		return supportError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Article deleted"})
}

func supportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, services.ErrArticleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrSlugTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}
