package services

import (
	"errors"
	"fmt"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
	"github.com/consultbridge/backend/internal/scope"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrArticleNotFound      = errors.New("article not found")
	ErrSlugTaken            = errors.New("an article with this title already exists")
)

type SupportService struct {
	db *gorm.DB
}

func NewSupportService(db *gorm.DB) *SupportService {
	return &SupportService{db: db}
}

func (s *SupportService) CreateConversation(userID uuid.UUID, req *dto.CreateConversationRequest) (*models.SupportConversation, error) {
	conv := models.SupportConversation{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: req.Subject,
		Status:  models.ConversationOpen,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		msg := models.SupportMessage{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Sender:         models.SenderUser,
			Body:           req.Message,
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return s.getConversation(conv.ID)
}

// ListConversations returns the caller's conversations; staff see all.
func (s *SupportService) ListConversations(userID uuid.UUID, isStaff bool) ([]models.SupportConversation, error) {
	var convs []models.SupportConversation
	q := s.db.Order("updated_at DESC")
	if !isStaff {
		q = q.Scopes(scope.OwnedBy(userID))
	}
	if err := q.Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (s *SupportService) GetConversation(userID uuid.UUID, isStaff bool, convID uuid.UUID) (*models.SupportConversation, error) {
	conv, err := s.getConversation(convID)
	if err != nil {
		return nil, err
	}
	if !isStaff && conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// AddMessage appends a message. Staff replies are recorded as SUPPORT;
// everything the owner sends is USER.
func (s *SupportService) AddMessage(userID uuid.UUID, isStaff bool, convID uuid.UUID, req *dto.AddMessageRequest) (*models.SupportMessage, error) {
	conv, err := s.GetConversation(userID, isStaff, convID)
	if err != nil {
		return nil, err
	}

	sender := models.SenderUser
	if isStaff && conv.UserID != userID {
		sender = models.SenderSupport
	}

	msg := models.SupportMessage{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Sender:         sender,
		Body:           req.Body,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	s.db.Model(&models.SupportConversation{}).Where("id = ?", conv.ID).Update("updated_at", msg.CreatedAt)
	return &msg, nil
}

func (s *SupportService) Resolve(userID uuid.UUID, isStaff bool, convID uuid.UUID) (*models.SupportConversation, error) {
	return s.setStatus(userID, isStaff, convID, models.ConversationResolved, "Conversation marked as resolved.")
}

func (s *SupportService) Reopen(userID uuid.UUID, isStaff bool, convID uuid.UUID) (*models.SupportConversation, error) {
	return s.setStatus(userID, isStaff, convID, models.ConversationOpen, "Conversation reopened.")
}

func (s *SupportService) setStatus(userID uuid.UUID, isStaff bool, convID uuid.UUID, status, note string) (*models.SupportConversation, error) {
	conv, err := s.GetConversation(userID, isStaff, convID)
	if err != nil {
		return nil, err
	}
	if conv.Status == status {
		return conv, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(conv).Update("status", status).Error; err != nil {
			return err
		}
		msg := models.SupportMessage{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Sender:         models.SenderSystem,
			Body:           note,
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation status: %w", err)
	}
	return s.getConversation(convID)
}

// ListArticles returns published articles, optionally filtered by a search
// term matched against title, content and category, and by exact category.
func (s *SupportService) ListArticles(search, category string) ([]models.SupportArticle, error) {
	q := s.db.Where("is_published = ?", true).Order("created_at DESC")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(content) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?)", like, like, like)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var articles []models.SupportArticle
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (s *SupportService) GetArticle(slugOrID string) (*models.SupportArticle, error) {
	var article models.SupportArticle
	q := s.db.Where("is_published = ?", true)
	if id, err := uuid.Parse(slugOrID); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", slugOrID)
	}
	if err := q.First(&article).Error; err != nil {
		return nil, ErrArticleNotFound
	}
	return &article, nil
}

// CategoryCounts aggregates published article counts per category.
func (s *SupportService) CategoryCounts() ([]dto.CategoryCount, error) {
	var counts []dto.CategoryCount
	err := s.db.Model(&models.SupportArticle{}).
		Select("category, COUNT(*) as count").
		Where("is_published = ? AND category <> ''", true).
		Group("category").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	return counts, nil
}

func (s *SupportService) CreateArticle(req *dto.CreateArticleRequest) (*models.SupportArticle, error) {
	article := models.SupportArticle{
		ID:          uuid.New(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Category:    req.Category,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	}

	var existing models.SupportArticle
	if err := s.db.Where("slug = ?", article.Slug).First(&existing).Error; err == nil {
		return nil, ErrSlugTaken
	}

	if err := s.db.Create(&article).Error; err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	return &article, nil
}

func (s *SupportService) UpdateArticle(articleID uuid.UUID, req *dto.UpdateArticleRequest) (*models.SupportArticle, error) {
	var article models.SupportArticle
	if err := s.db.First(&article, "id = ?", articleID).Error; err != nil {
		return nil, ErrArticleNotFound
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
		updates["slug"] = slug.Make(*req.Title)
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}

	if len(updates) > 0 {
		if err := s.db.Model(&article).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update article: %w", err)
		}
	}
	return &article, nil
}

func (s *SupportService) DeleteArticle(articleID uuid.UUID) error {
	result := s.db.Delete(&models.SupportArticle{}, "id = ?", articleID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete article: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (s *SupportService) getConversation(convID uuid.UUID) (*models.SupportConversation, error) {
	var conv models.SupportConversation
	err := s.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&conv, "id = ?", convID).Error
	if err != nil {
		return nil, ErrConversationNotFound
	}
	return &conv, nil
}
