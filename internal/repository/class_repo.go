package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// ClassDependents counts the rows that reference a class.
type ClassDependents struct {
	Students    int64
	Assignments int64
}

// Total returns the number of dependent rows.
func (d ClassDependents) Total() int64 {
	return d.Students + d.Assignments
}

// ClassRepository persists classes and their teacher roster.
type ClassRepository interface {
	List(ctx context.Context, search string) ([]models.Class, error)
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	ReplaceTeachers(ctx context.Context, class *models.Class, teacherIDs []uint) error
	CountDependents(ctx context.Context, id uint) (ClassDependents, error)
	Delete(ctx context.Context, id uint, detach bool) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs the class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) List(ctx context.Context, search string) ([]models.Class, error) {
	query := r.db.WithContext(ctx).Model(&models.Class{}).Preload("Teachers")
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var classes []models.Class
	if err := query.Order("name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Preload("Teachers").First(&class, id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Class, error) {
	if len(ids) == 0 {
		return []models.Class{}, nil
	}

	var classes []models.Class
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(class).Error
}

func (r *classRepository) Update(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(class).Error
}

// ReplaceTeachers sets the class roster to the staff accounts in teacherIDs. Unknown or student ids are ignored.
func (r *classRepository) ReplaceTeachers(ctx context.Context, class *models.Class, teacherIDs []uint) error {
	teachers := make([]models.User, 0, len(teacherIDs))
	if len(teacherIDs) > 0 {
		if err := r.db.WithContext(ctx).
			Where("id IN ? AND role IN ?", teacherIDs, []string{models.RoleTeacher, models.RoleAdmin}).
			Find(&teachers).Error; err != nil {
			return err
		}
	}

	if err := r.db.WithContext(ctx).Model(class).Association("Teachers").Replace(teachers); err != nil {
		return err
	}
	class.Teachers = teachers
	return nil
}

func (r *classRepository) CountDependents(ctx context.Context, id uint) (ClassDependents, error) {
	var deps ClassDependents
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Where("class_id = ?", id).Count(&deps.Students).Error; err != nil {
		return ClassDependents{}, err
	}
	if err := db.Table("assignment_classes").Where("class_id = ?", id).Count(&deps.Assignments).Error; err != nil {
		return ClassDependents{}, err
	}
	return deps, nil
}

// Delete removes the class. With detach set, students lose their class and assignments stop targeting it.
func (r *classRepository) Delete(ctx context.Context, id uint, detach bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if detach {
			if err := tx.Model(&models.User{}).Where("class_id = ?", id).Update("class_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM assignment_classes WHERE class_id = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM class_teachers WHERE class_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Class{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
