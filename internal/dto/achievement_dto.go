package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// AchievementRequest creates or replaces an achievement definition.
type AchievementRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=128"`
	Description string          `json:"description" validate:"max=2000"`
	Icon        string          `json:"icon" validate:"max=255"`
	Criteria    json.RawMessage `json:"criteria" validate:"required"`
}

// AchievementResponse serializes an achievement definition.
type AchievementResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Icon          string          `json:"icon"`
	Criteria      json.RawMessage `json:"criteria"`
	UnlockedCount *int64          `json:"unlocked_count,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UnlockedAchievementResponse is an achievement together with when the user earned it.
type UnlockedAchievementResponse struct {
	Achievement AchievementResponse `json:"achievement"`
	UnlockedAt  time.Time           `json:"unlocked_at"`
}

// StudentAchievementsResponse lists what a student has earned and what remains.
type StudentAchievementsResponse struct {
	Unlocked []UnlockedAchievementResponse `json:"unlocked"`
	Locked   []AchievementResponse         `json:"locked"`
}

// NewAchievementResponse converts a model into a DTO.
func NewAchievementResponse(model models.Achievement) AchievementResponse {
	criteria := json.RawMessage(model.Criteria)
	if len(criteria) == 0 {
		criteria = json.RawMessage("{}")
	}
	return AchievementResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Icon:        model.Icon,
		Criteria:    criteria,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
