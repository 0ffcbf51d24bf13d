package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// CategoryRepository persists art categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	CountAssignments(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint, cascade bool) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository constructs the category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return models.Category{}, err
	}
	return category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *categoryRepository) CountAssignments(ctx context.Context, id uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("category_id = ?", id).Count(&total).Error
	return total, err
}

// Delete removes the category. With cascade set, its assignments and their submissions go too.
func (r *categoryRepository) Delete(ctx context.Context, id uint, cascade bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cascade {
			assignmentIDs := tx.Model(&models.Assignment{}).Select("id").Where("category_id = ?", id)
			if err := deleteAssignments(tx, assignmentIDs); err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
