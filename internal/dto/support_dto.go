package dto

type CreateConversationRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
}

type AddMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

type CreateArticleRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Category    string `json:"category" validate:"omitempty,max=100"`
	Content     string `json:"content" validate:"required"`
	IsPublished bool   `json:"is_published"`
}

type UpdateArticleRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Content     *string `json:"content"`
	IsPublished *bool   `json:"is_published"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
