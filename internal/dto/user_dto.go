package dto

import (
	"time"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// UserListRequest defines filters for listing users.
type UserListRequest struct {
	Role     string `validate:"omitempty,oneof=admin teacher student"`
	ClassID  *uint
	Search   string
	Page     int `validate:"gte=0"`
	PageSize int `validate:"gte=0,lte=100"`
}

// UserCreateRequest creates an account. Staff need a NIP, students a NIS.
type UserCreateRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	NIP      *string `json:"nip" validate:"omitempty,alphanum,min=4,max=32"`
	NIS      *string `json:"nis" validate:"omitempty,alphanum,min=4,max=32"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Role     string  `json:"role" validate:"required,oneof=admin teacher student"`
	ClassID  *uint   `json:"class_id" validate:"omitempty,gt=0"`
	ClassIDs []uint  `json:"class_ids" validate:"omitempty,dive,gt=0"`
}

// UserUpdateRequest captures partial admin updates.
type UserUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	NIP      *string `json:"nip" validate:"omitempty,alphanum,min=4,max=32"`
	NIS      *string `json:"nis" validate:"omitempty,alphanum,min=4,max=32"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	ClassID  *uint   `json:"class_id" validate:"omitempty,gt=0"`
	ClassIDs []uint  `json:"class_ids" validate:"omitempty,dive,gt=0"`
}

// ProfileUpdateRequest lets a user edit their own profile.
type ProfileUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=255"`
	Bio  *string `json:"bio" validate:"omitempty,max=2000"`
}

// UserResponse serializes an account.
type UserResponse struct {
	ID        uint        `json:"id"`
	Name      string      `json:"name"`
	Email     *string     `json:"email"`
	NIP       *string     `json:"nip,omitempty"`
	NIS       *string     `json:"nis,omitempty"`
	Role      string      `json:"role"`
	ClassID   *uint       `json:"class_id"`
	Class     *ClassLite  `json:"class,omitempty"`
	Classes   []ClassLite `json:"classes,omitempty"`
	AvatarURL string      `json:"avatar_url"`
	Bio       string      `json:"bio"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// UserListResponse wraps a paginated user listing.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	response := UserResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		NIP:       model.NIP,
		NIS:       model.NIS,
		Role:      model.Role,
		ClassID:   model.ClassID,
		AvatarURL: model.AvatarURL,
		Bio:       model.Bio,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if model.Class != nil && model.Class.ID != 0 {
		response.Class = &ClassLite{ID: model.Class.ID, Name: model.Class.Name}
	}
	for _, class := range model.Classes {
		response.Classes = append(response.Classes, ClassLite{ID: class.ID, Name: class.Name})
	}

	return response
}

// NewUserResponseSlice converts user models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
