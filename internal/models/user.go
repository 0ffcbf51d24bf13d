package models

import (
	"strings"
	"time"
)

// Role names recognised by the authorization gate.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is any authenticated account: staff (teacher/admin) identified by NIP, students by NIS.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        *string   `gorm:"size:255;uniqueIndex" json:"email"`
	NIP          *string   `gorm:"column:nip;size:32;uniqueIndex" json:"nip"`
	NIS          *string   `gorm:"column:nis;size:32;uniqueIndex" json:"nis"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;index" json:"role"`
	ClassID      *uint     `gorm:"index" json:"class_id"`
	Class        *Class    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"class,omitempty"`
	AvatarURL    string    `gorm:"size:512" json:"avatar_url"`
	Bio          string    `gorm:"type:text" json:"bio"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	Classes      []Class   `gorm:"many2many:class_teachers;" json:"classes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the user is a teacher or an administrator.
func (u User) IsStaff() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// Identifier returns the login identifier for the account.
func (u User) Identifier() string {
	switch {
	case u.NIP != nil && strings.TrimSpace(*u.NIP) != "":
		return *u.NIP
	case u.NIS != nil && strings.TrimSpace(*u.NIS) != "":
		return *u.NIS
	case u.Email != nil:
		return *u.Email
	default:
		return ""
	}
}
