package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives page counts from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page <= 0 {
		page = 1
	}
	totalPages := 1
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
		if totalPages == 0 {
			totalPages = 1
		}
	}
	return PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: totalPages}
}

// UserLite summarizes an account without exposing profile details.
type UserLite struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Identifier string `json:"identifier"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// NewUserLite converts a user into its summary form.
func NewUserLite(user models.User) UserLite {
	return UserLite{
		ID:         user.ID,
		Name:       user.Name,
		Role:       user.Role,
		Identifier: user.Identifier(),
		AvatarURL:  user.AvatarURL,
	}
}

// ClassLite summarizes a class.
type ClassLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CategoryLite summarizes a category.
type CategoryLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// AssignmentLite summarizes an assignment in nested responses.
type AssignmentLite struct {
	ID       uint         `json:"id"`
	Title    string       `json:"title"`
	Deadline time.Time    `json:"deadline"`
	Status   string       `json:"status"`
	Category CategoryLite `json:"category"`
}

// NewAssignmentLite converts an assignment into its summary form.
func NewAssignmentLite(model models.Assignment) AssignmentLite {
	return AssignmentLite{
		ID:       model.ID,
		Title:    model.Title,
		Deadline: model.Deadline,
		Status:   model.Status,
		Category: CategoryLite{ID: model.Category.ID, Name: model.Category.Name},
	}
}

// BulkResult reports how many rows a bulk operation touched.
type BulkResult struct {
	Affected int64 `json:"affected"`
}
