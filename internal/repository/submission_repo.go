package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	CategoryID   *uint
	ClassID      *uint
	Status       string
	Search       string
	Page         int
	PageSize     int
}

// GradedRecord is the minimal projection used to compute achievement statistics.
type GradedRecord struct {
	SubmissionID uint
	Grade        int
	CategoryID   uint
}

// SubmissionRepository defines data operations for submissions and their revision snapshots.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Save(ctx context.Context, submission *models.Submission, revision *models.SubmissionRevision) error
	Delete(ctx context.Context, id uint) error
	ListRevisions(ctx context.Context, submissionID uint) ([]models.SubmissionRevision, error)
	GradedRecords(ctx context.Context, studentID uint) ([]GradedRecord, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Assignment.Category").
		Preload("Student").
		Preload("Revisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != nil {
		query = query.Where("submissions.assignment_id = ?", *filter.AssignmentID)
	}
	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}
	if status := strings.ToUpper(strings.TrimSpace(filter.Status)); status != "" {
		query = query.Where("submissions.status = ?", status)
	}
	if filter.CategoryID != nil {
		query = query.Where("submissions.assignment_id IN (?)",
			r.db.Model(&models.Assignment{}).Select("id").Where("category_id = ?", *filter.CategoryID))
	}
	if filter.ClassID != nil {
		query = query.Where("submissions.student_id IN (?)",
			r.db.Model(&models.User{}).Select("id").Where("class_id = ?", *filter.ClassID))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(submissions.title) LIKE ?", pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var ids []uint
	if err := query.Order("submissions.submitted_at DESC").Order("submissions.id DESC").Pluck("submissions.id", &ids).Error; err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []models.Submission{}, total, nil
	}

	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("submissions.id IN ?", ids).
		Order("submissions.submitted_at DESC").
		Order("submissions.id DESC").
		Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Create inserts a new submission. A second row for the same pair fails with gorm.ErrDuplicatedKey.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
}

// Save persists the submission and, when given, the archived snapshot in one transaction.
func (r *submissionRepository) Save(ctx context.Context, submission *models.Submission, revision *models.SubmissionRevision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if revision != nil {
			revision.SubmissionID = submission.ID
			if err := tx.Create(revision).Error; err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Save(submission).Error
	})
}

func (r *submissionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionRevision{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Submission{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *submissionRepository) ListRevisions(ctx context.Context, submissionID uint) ([]models.SubmissionRevision, error) {
	var revisions []models.SubmissionRevision
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("version ASC").
		Find(&revisions).Error; err != nil {
		return nil, err
	}

	return revisions, nil
}

func (r *submissionRepository) GradedRecords(ctx context.Context, studentID uint) ([]GradedRecord, error) {
	var records []GradedRecord
	if err := r.db.WithContext(ctx).
		Table("submissions").
		Select("submissions.id AS submission_id, submissions.grade AS grade, assignments.category_id AS category_id").
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("submissions.student_id = ?", studentID).
		Where("submissions.status = ?", models.SubmissionStatusGraded).
		Where("submissions.grade IS NOT NULL").
		Order("submissions.id ASC").
		Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
