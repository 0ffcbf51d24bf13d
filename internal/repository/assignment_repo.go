package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	Status      string
	CategoryID  *uint
	ClassID     *uint
	CreatedByID *uint
	Search      string
	Sort        string
	Page        int
	PageSize    int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment, classIDs []uint) error
	Update(ctx context.Context, assignment *models.Assignment, classIDs []uint) error
	UpdateStatus(ctx context.Context, ids []uint, status string) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if status := strings.ToUpper(strings.TrimSpace(filter.Status)); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ClassID != nil {
		query = query.Where("id IN (?)", r.db.Table("assignment_classes").Select("assignment_id").Where("class_id = ?", *filter.ClassID))
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeAssignmentSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Preload("Category").Preload("Classes").Preload("CreatedBy").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Classes").
		Preload("CreatedBy").
		First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Assignment, error) {
	if len(ids) == 0 {
		return []models.Assignment{}, nil
	}

	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).Preload("Classes").Where("id IN ?", ids).Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment, classIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(assignment).Error; err != nil {
			return err
		}
		return replaceAssignmentClasses(tx, assignment, classIDs)
	})
}

// Update saves scalar fields; a nil classIDs keeps the current class targets.
func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment, classIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(assignment).Error; err != nil {
			return err
		}
		if classIDs == nil {
			return nil
		}
		return replaceAssignmentClasses(tx, assignment, classIDs)
	})
}

func replaceAssignmentClasses(tx *gorm.DB, assignment *models.Assignment, classIDs []uint) error {
	classes := []models.Class{}
	if len(classIDs) > 0 {
		if err := tx.Where("id IN ?", classIDs).Order("id ASC").Find(&classes).Error; err != nil {
			return err
		}
	}
	if err := tx.Model(assignment).Association("Classes").Replace(classes); err != nil {
		return err
	}
	assignment.Classes = classes
	return nil
}

func (r *assignmentRepository) UpdateStatus(ctx context.Context, ids []uint, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id IN ?", ids).Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	affected, err := r.DeleteMany(ctx, []uint{id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = deleteAssignmentsCounted(tx, ids)
		return err
	})
	return affected, err
}

func (r *assignmentRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&total).Error
	return total, err
}

// deleteAssignments removes the assignments matched by ids (a slice or subquery) with their
// submissions, revisions and class links.
func deleteAssignments(tx *gorm.DB, ids interface{}) error {
	_, err := deleteAssignmentsCounted(tx, ids)
	return err
}

func deleteAssignmentsCounted(tx *gorm.DB, ids interface{}) (int64, error) {
	submissionIDs := tx.Model(&models.Submission{}).Select("id").Where("assignment_id IN (?)", ids)
	if err := tx.Where("submission_id IN (?)", submissionIDs).Delete(&models.SubmissionRevision{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("assignment_id IN (?)", ids).Delete(&models.Submission{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Exec("DELETE FROM assignment_classes WHERE assignment_id IN (?)", ids).Error; err != nil {
		return 0, err
	}

	result := tx.Where("id IN (?)", ids).Delete(&models.Assignment{})
	return result.RowsAffected, result.Error
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "deadline", "deadline:asc", "deadline.asc":
		return "deadline ASC"
	case "-deadline", "deadline:desc", "deadline.desc":
		return "deadline DESC"
	case "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	default:
		return "deadline ASC"
	}
}
