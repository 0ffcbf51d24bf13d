package models

import (
	"time"

	"gorm.io/datatypes"
)

// Achievement is an unlockable badge with a declarative criterion stored as JSON.
type Achievement struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Icon        string         `gorm:"size:255" json:"icon"`
	Criteria    datatypes.JSON `gorm:"type:json;not null" json:"criteria"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UserAchievement records that a user unlocked an achievement. One row per pair.
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_user_achievement_pair" json:"user_id"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_user_achievement_pair;index" json:"achievement_id"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
	Achievement   Achievement `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"achievement"`
}
