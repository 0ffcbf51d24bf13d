package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// ClassRequest creates or replaces a class.
type ClassRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2000"`
	TeacherIDs  []uint `json:"teacher_ids" validate:"omitempty,dive,gt=0"`
}

// ClassResponse serializes a class.
type ClassResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Teachers    []UserLite `json:"teachers"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewClassResponse converts a model into a DTO.
func NewClassResponse(model models.Class) ClassResponse {
	teachers := make([]UserLite, 0, len(model.Teachers))
	for _, teacher := range model.Teachers {
		teachers = append(teachers, NewUserLite(teacher))
	}
	return ClassResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Teachers:    teachers,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// CategoryRequest creates or replaces a category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2000"`
}

// CategoryResponse serializes a category.
type CategoryResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCategoryResponse converts a model into a DTO.
func NewCategoryResponse(model models.Category) CategoryResponse {
	return CategoryResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
