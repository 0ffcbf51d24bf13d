package models

import "time"

const (
	// SubmissionStatusPending indicates the artwork awaits review.
	SubmissionStatusPending = "PENDING"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded = "GRADED"
	// SubmissionStatusRevision indicates the teacher asked for another attempt.
	SubmissionStatusRevision = "REVISION"
	// SubmissionStatusNotSubmitted is only reported, never stored.
	SubmissionStatusNotSubmitted = "NOT_SUBMITTED"
)

// ImageSet holds the URLs of one uploaded artwork and its derivatives.
// ImageChecksum is the sha256 of the bytes the student uploaded.
type ImageSet struct {
	ImageURL          string `gorm:"size:512;not null" json:"image_url"`
	ImageMediumURL    string `gorm:"size:512" json:"image_medium_url"`
	ImageThumbnailURL string `gorm:"size:512" json:"image_thumbnail_url"`
	ImageChecksum     string `gorm:"size:64" json:"-"`
}

// SameImage reports whether both sets point at the same artwork. Checksums win when
// both sides carry one; otherwise the full image URL decides.
func (s ImageSet) SameImage(other ImageSet) bool {
	if s.ImageChecksum != "" && other.ImageChecksum != "" {
		return s.ImageChecksum == other.ImageChecksum
	}
	return s.ImageURL != "" && s.ImageURL == other.ImageURL
}

// IsZero reports whether no image has been attached.
func (s ImageSet) IsZero() bool {
	return s.ImageURL == "" && s.ImageChecksum == ""
}

// Submission is one student's artwork attempt for one assignment.
type Submission struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	AssignmentID  uint                 `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID     uint                 `gorm:"not null;uniqueIndex:idx_submission_assignment_student;index" json:"student_id"`
	Title         string               `gorm:"size:255;not null" json:"title"`
	Description   string               `gorm:"type:text" json:"description"`
	ImageSet      `gorm:"embedded"`
	Status        string               `gorm:"size:16;not null;index" json:"status"`
	Grade         *int                 `json:"grade"`
	Feedback      *string              `gorm:"type:text" json:"feedback"`
	SubmittedAt   time.Time            `gorm:"not null" json:"submitted_at"`
	GradedAt      *time.Time           `json:"graded_at"`
	GradedBy      *uint                `json:"graded_by"`
	RevisionCount int                  `gorm:"not null;default:0" json:"revision_count"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Assignment    Assignment           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student       User                 `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Revisions     []SubmissionRevision `gorm:"constraint:OnDelete:CASCADE" json:"revisions,omitempty"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// IsMutable reports whether the student may still replace the artwork.
func (s Submission) IsMutable() bool {
	return s.Status == SubmissionStatusPending || s.Status == SubmissionStatusRevision
}

// SubmissionRevision is an immutable snapshot of a previous artwork image.
type SubmissionRevision struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_revision_submission_version" json:"submission_id"`
	Version      int       `gorm:"not null;uniqueIndex:idx_revision_submission_version" json:"version"`
	ImageSet     `gorm:"embedded"`
	RevisionNote *string   `gorm:"type:text" json:"revision_note"`
	SubmittedAt  time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt    time.Time `json:"created_at"`
}
