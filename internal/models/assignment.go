package models

import "time"

// Assignment statuses.
const (
	AssignmentStatusDraft     = "DRAFT"
	AssignmentStatusPublished = "PUBLISHED"
	AssignmentStatusClosed    = "CLOSED"
)

// Assignment is an art task scoped to one category and one or more classes.
type Assignment struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	CategoryID  uint         `gorm:"not null;index" json:"category_id"`
	Category    Category     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category"`
	Classes     []Class      `gorm:"many2many:assignment_classes;" json:"classes"`
	Deadline    time.Time    `gorm:"not null;index" json:"deadline"`
	Status      string       `gorm:"size:16;not null;index" json:"status"`
	CreatedByID uint         `gorm:"not null" json:"created_by_id"`
	CreatedBy   User         `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Submissions []Submission `json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.Deadline)
}

// IsPublished reports whether students can see and submit to the assignment.
func (a Assignment) IsPublished() bool {
	return a.Status == AssignmentStatusPublished
}

// ClassIDs lists the identifiers of the loaded classes.
func (a Assignment) ClassIDs() []uint {
	ids := make([]uint, 0, len(a.Classes))
	for _, class := range a.Classes {
		ids = append(ids, class.ID)
	}
	return ids
}
