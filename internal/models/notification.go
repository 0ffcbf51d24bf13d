package models

import "time"

// Notification types emitted by the application.
const (
	NotificationAssignmentNew       = "assignment_new"
	NotificationSubmissionGraded    = "submission_graded"
	NotificationRevisionRequested   = "revision_requested"
	NotificationAchievementUnlocked = "achievement_unlocked"
	NotificationSystem              = "system"
)

// Notification is an entry in a user's inbox.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Link      string    `gorm:"size:512" json:"link"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
