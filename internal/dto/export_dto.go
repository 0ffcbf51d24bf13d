package dto

import "time"

// ExportRequest narrows the graded submissions included in a report.
type ExportRequest struct {
	ClassID      *uint
	CategoryID   *uint
	AssignmentID *uint
	StudentID    *uint
	From         *time.Time
	To           *time.Time
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
