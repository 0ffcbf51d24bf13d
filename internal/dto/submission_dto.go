package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// SubmissionCreateRequest describes the multipart fields sent with an artwork upload.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" json:"assignment_id" validate:"required,gt=0"`
	Title        string `form:"title" json:"title" validate:"required,min=1,max=255"`
	Description  string `form:"description" json:"description" validate:"max=5000"`
}

// SubmissionUpdateRequest replaces the student-editable fields. The image travels separately.
type SubmissionUpdateRequest struct {
	Title       *string `form:"title" json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `form:"description" json:"description" validate:"omitempty,max=5000"`
}

// GradeRequest is sent by a teacher to grade a submission.
type GradeRequest struct {
	Grade    *int    `json:"grade" validate:"required,gte=0,lte=100"`
	Feedback *string `json:"feedback" validate:"omitempty,max=5000"`
}

// RevisionRequest is sent by a teacher to ask for another attempt.
type RevisionRequest struct {
	RevisionNote string `json:"revision_note" validate:"required,min=1,max=5000"`
}

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	AssignmentID *uint
	StudentID    *uint
	CategoryID   *uint
	ClassID      *uint
	Status       string `validate:"omitempty,oneof=PENDING GRADED REVISION"`
	Search       string
	Page         int `validate:"gte=0"`
	PageSize     int `validate:"gte=0,lte=100"`
}

// ImageHistoryEntry is one version in a submission's reconstructed image timeline.
type ImageHistoryEntry struct {
	Version           int       `json:"version"`
	ImageURL          string    `json:"image_url"`
	ImageMediumURL    string    `json:"image_medium_url"`
	ImageThumbnailURL string    `json:"image_thumbnail_url"`
	RevisionNote      *string   `json:"revision_note"`
	SubmittedAt       time.Time `json:"submitted_at"`
	IsCurrent         bool      `json:"is_current"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                uint                `json:"id"`
	AssignmentID      uint                `json:"assignment_id"`
	StudentID         uint                `json:"student_id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	ImageURL          string              `json:"image_url"`
	ImageMediumURL    string              `json:"image_medium_url"`
	ImageThumbnailURL string              `json:"image_thumbnail_url"`
	Status            string              `json:"status"`
	Grade             *int                `json:"grade"`
	Feedback          *string             `json:"feedback"`
	SubmittedAt       time.Time           `json:"submitted_at"`
	GradedAt          *time.Time          `json:"graded_at"`
	GradedBy          *uint               `json:"graded_by"`
	RevisionCount     int                 `json:"revision_count"`
	History           []ImageHistoryEntry `json:"history"`
	Assignment        *AssignmentLite     `json:"assignment,omitempty"`
	Student           *UserLite           `json:"student,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// SubmissionListResponse wraps a paginated submission listing.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewSubmissionResponse converts a Submission model and its reconstructed history into a DTO.
func NewSubmissionResponse(model models.Submission, history []ImageHistoryEntry) SubmissionResponse {
	if history == nil {
		history = []ImageHistoryEntry{}
	}

	response := SubmissionResponse{
		ID:                model.ID,
		AssignmentID:      model.AssignmentID,
		StudentID:         model.StudentID,
		Title:             model.Title,
		Description:       model.Description,
		ImageURL:          model.ImageURL,
		ImageMediumURL:    model.ImageMediumURL,
		ImageThumbnailURL: model.ImageThumbnailURL,
		Status:            model.Status,
		Grade:             model.Grade,
		Feedback:          model.Feedback,
		SubmittedAt:       model.SubmittedAt,
		GradedAt:          model.GradedAt,
		GradedBy:          model.GradedBy,
		RevisionCount:     model.RevisionCount,
		History:           history,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		lite := NewAssignmentLite(model.Assignment)
		response.Assignment = &lite
	}

	if model.Student.ID != 0 {
		lite := NewUserLite(model.Student)
		response.Student = &lite
	}

	return response
}
