package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// GradeFilter narrows graded-submission projections used by dashboards and exports.
type GradeFilter struct {
	ClassID      *uint
	CategoryID   *uint
	AssignmentID *uint
	StudentID    *uint
	From         *time.Time
	To           *time.Time
}

// CategoryAverage aggregates grades per category.
type CategoryAverage struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Average      float64 `json:"average"`
	Count        int64   `json:"count"`
}

// AnalyticsRepository supplies read-only aggregates for dashboards and exports.
type AnalyticsRepository interface {
	CountSubmissionsByStatus(ctx context.Context, studentID *uint) (map[string]int64, error)
	CountGradedSince(ctx context.Context, since time.Time) (int64, error)
	AverageGrade(ctx context.Context, studentID *uint) (float64, error)
	CategoryAverages(ctx context.Context, studentID *uint) ([]CategoryAverage, error)
	ListAwaitingReview(ctx context.Context, limit int) ([]models.Submission, error)
	ListRecentlyGraded(ctx context.Context, studentID uint, limit int) ([]models.Submission, error)
	ListGraded(ctx context.Context, filter GradeFilter) ([]models.Submission, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CountSubmissionsByStatus(ctx context.Context, studentID *uint) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}

	query := r.db.WithContext(ctx).Model(&models.Submission{}).Select("status, COUNT(*) AS total")
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var rows []row
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[string]int64{
		models.SubmissionStatusPending:  0,
		models.SubmissionStatusRevision: 0,
		models.SubmissionStatusGraded:   0,
	}
	for _, item := range rows {
		counts[item.Status] = item.Total
	}
	return counts, nil
}

func (r *analyticsRepository) CountGradedSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("status = ?", models.SubmissionStatusGraded).
		Where("graded_at >= ?", since).
		Count(&total).Error
	return total, err
}

func (r *analyticsRepository) AverageGrade(ctx context.Context, studentID *uint) (float64, error) {
	var result struct {
		Average *float64
	}

	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("AVG(grade) AS average").
		Where("status = ?", models.SubmissionStatusGraded).
		Where("grade IS NOT NULL")
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	if err := query.Scan(&result).Error; err != nil {
		return 0, err
	}
	if result.Average == nil {
		return 0, nil
	}
	return *result.Average, nil
}

func (r *analyticsRepository) CategoryAverages(ctx context.Context, studentID *uint) ([]CategoryAverage, error) {
	query := r.db.WithContext(ctx).
		Table("submissions").
		Select("categories.id AS category_id, categories.name AS category_name, AVG(submissions.grade) AS average, COUNT(submissions.id) AS count").
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Joins("JOIN categories ON categories.id = assignments.category_id").
		Where("submissions.status = ?", models.SubmissionStatusGraded).
		Where("submissions.grade IS NOT NULL")
	if studentID != nil {
		query = query.Where("submissions.student_id = ?", *studentID)
	}

	var averages []CategoryAverage
	if err := query.Group("categories.id, categories.name").Order("categories.name ASC").Scan(&averages).Error; err != nil {
		return nil, err
	}
	return averages, nil
}

func (r *analyticsRepository) ListAwaitingReview(ctx context.Context, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Preload("Student").
		Where("status = ?", models.SubmissionStatusPending).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&submissions).Error
	return submissions, err
}

func (r *analyticsRepository) ListRecentlyGraded(ctx context.Context, studentID uint, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Where("student_id = ?", studentID).
		Where("status = ?", models.SubmissionStatusGraded).
		Order("graded_at DESC").
		Limit(limit).
		Find(&submissions).Error
	return submissions, err
}

func (r *analyticsRepository) ListGraded(ctx context.Context, filter GradeFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submissions.status = ?", models.SubmissionStatusGraded)

	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}
	if filter.AssignmentID != nil {
		query = query.Where("submissions.assignment_id = ?", *filter.AssignmentID)
	}
	if filter.CategoryID != nil {
		query = query.Where("submissions.assignment_id IN (?)",
			r.db.Model(&models.Assignment{}).Select("id").Where("category_id = ?", *filter.CategoryID))
	}
	if filter.ClassID != nil {
		query = query.Where("submissions.student_id IN (?)",
			r.db.Model(&models.User{}).Select("id").Where("class_id = ?", *filter.ClassID))
	}
	if filter.From != nil {
		query = query.Where("submissions.graded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("submissions.graded_at <= ?", *filter.To)
	}

	var submissions []models.Submission
	err := query.
		Preload("Assignment").
		Preload("Assignment.Category").
		Preload("Student").
		Preload("Student.Class").
		Preload("Revisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version ASC")
		}).
		Order("submissions.graded_at DESC").
		Order("submissions.id DESC").
		Find(&submissions).Error
	return submissions, err
}
