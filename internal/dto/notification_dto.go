package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// NotificationListRequest narrows a user's inbox.
type NotificationListRequest struct {
	UnreadOnly bool
	Limit      int `validate:"gte=0,lte=100"`
	Offset     int `validate:"gte=0"`
}

// NotificationResponse serializes an inbox entry.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationListResponse wraps one page of the inbox.
type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	Total       int64                  `json:"total"`
	UnreadCount int64                  `json:"unread_count"`
}

// NewNotificationResponse converts a model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Title:     model.Title,
		Message:   model.Message,
		Link:      model.Link,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}
