package dto

import "time"

// SubmissionSummary is a compact submission row used by dashboards.
type SubmissionSummary struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	AssignmentID    uint       `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	StudentID       uint       `json:"student_id"`
	StudentName     string     `json:"student_name,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	Status          string     `json:"status"`
	Grade           *int       `json:"grade"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	GradedAt        *time.Time `json:"graded_at,omitempty"`
}

// CategoryAverage aggregates grades for one category.
type CategoryAverage struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Average      float64 `json:"average"`
	Count        int64   `json:"count"`
}

// TeacherDashboardResponse summarizes grading workload for staff.
type TeacherDashboardResponse struct {
	TotalStudents        int64               `json:"total_students"`
	TotalAssignments     int64               `json:"total_assignments"`
	PublishedAssignments int64               `json:"published_assignments"`
	PendingReviews       int64               `json:"pending_reviews"`
	RevisionRequested    int64               `json:"revision_requested"`
	GradedThisWeek       int64               `json:"graded_this_week"`
	AverageGrade         float64             `json:"average_grade"`
	AwaitingReview       []SubmissionSummary `json:"awaiting_review"`
	CategoryAverages     []CategoryAverage   `json:"category_averages"`
	GeneratedAt          time.Time           `json:"generated_at"`
	CacheHit             bool                `json:"cache_hit"`
}

// StudentDashboardResponse summarizes a student's progress.
type StudentDashboardResponse struct {
	OpenAssignments      int64               `json:"open_assignments"`
	SubmissionsByStatus  map[string]int64    `json:"submissions_by_status"`
	AverageGrade         float64             `json:"average_grade"`
	RecentGrades         []SubmissionSummary `json:"recent_grades"`
	UpcomingDeadlines    []AssignmentLite    `json:"upcoming_deadlines"`
	AchievementsUnlocked int64               `json:"achievements_unlocked"`
	UnreadNotifications  int64               `json:"unread_notifications"`
	GeneratedAt          time.Time           `json:"generated_at"`
	CacheHit             bool                `json:"cache_hit"`
}

// PortfolioStats aggregates a student's graded work.
type PortfolioStats struct {
	TotalGraded int     `json:"total_graded"`
	Average     float64 `json:"average"`
	Highest     int     `json:"highest"`
	Categories  int     `json:"categories"`
}

// PortfolioResponse is a student's graded artwork collection.
type PortfolioResponse struct {
	Student UserLite             `json:"student"`
	Stats   PortfolioStats       `json:"stats"`
	Items   []SubmissionResponse `json:"items"`
}
