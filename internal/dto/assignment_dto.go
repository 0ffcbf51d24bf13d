package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=255"`
	Description string    `json:"description" validate:"max=10000"`
	CategoryID  uint      `json:"category_id" validate:"required,gt=0"`
	ClassIDs    []uint    `json:"class_ids" validate:"required,min=1,dive,gt=0"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	Status      string    `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED CLOSED"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	CategoryID  *uint      `json:"category_id" validate:"omitempty,gt=0"`
	ClassIDs    []uint     `json:"class_ids" validate:"omitempty,min=1,dive,gt=0"`
	Deadline    *time.Time `json:"deadline"`
	Status      *string    `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED CLOSED"`
}

// AssignmentListRequest defines filters for listing assignments.
type AssignmentListRequest struct {
	Status     string `validate:"omitempty,oneof=DRAFT PUBLISHED CLOSED"`
	CategoryID *uint
	ClassID    *uint
	Search     string
	Sort       string
	Page       int `validate:"gte=0"`
	PageSize   int `validate:"gte=0,lte=100"`
}

// BulkStatusRequest changes the status of several assignments.
type BulkStatusRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
	Status string `json:"status" validate:"required,oneof=DRAFT PUBLISHED CLOSED"`
}

// BulkDeleteRequest deletes several assignments.
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    CategoryLite `json:"category"`
	Classes     []ClassLite  `json:"classes"`
	Deadline    time.Time    `json:"deadline"`
	Status      string       `json:"status"`
	CreatedBy   UserLite     `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AssignmentListResponse wraps a paginated assignment listing.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// AssignmentSubmissionStatus is one enrolled student's standing on an assignment.
type AssignmentSubmissionStatus struct {
	Student      UserLite   `json:"student"`
	SubmissionID *uint      `json:"submission_id"`
	Status       string     `json:"status"`
	Grade        *int       `json:"grade"`
	SubmittedAt  *time.Time `json:"submitted_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	classes := make([]ClassLite, 0, len(model.Classes))
	for _, class := range model.Classes {
		classes = append(classes, ClassLite{ID: class.ID, Name: class.Name})
	}

	response := AssignmentResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Category:    CategoryLite{ID: model.CategoryID, Name: model.Category.Name},
		Classes:     classes,
		Deadline:    model.Deadline,
		Status:      model.Status,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if model.CreatedBy.ID != 0 {
		response.CreatedBy = NewUserLite(model.CreatedBy)
	} else {
		response.CreatedBy = UserLite{ID: model.CreatedByID}
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
