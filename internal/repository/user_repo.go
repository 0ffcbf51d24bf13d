package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role     string
	ClassID  *uint
	Search   string
	Page     int
	PageSize int
}

// UserRepository provides access to accounts of every role.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (models.User, error)
	ListStudentsInClasses(ctx context.Context, classIDs []uint) ([]models.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ReplaceTeachingClasses(ctx context.Context, user *models.User, classIDs []uint) error
	IncrementTokenVersion(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if role := strings.ToLower(strings.TrimSpace(filter.Role)); role != "" {
		query = query.Where("role = ?", role)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR nip LIKE ? OR nis LIKE ?", pattern, pattern, pattern, pattern)
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

	var users []models.User
	if err := query.Preload("Class").Order("name ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Class").Preload("Classes").First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

// GetByIdentifier resolves a login identifier: NIP for staff, NIS for students, or email.
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("nip = ? OR nis = ? OR LOWER(email) = ?", identifier, identifier, strings.ToLower(identifier)).
		First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) ListStudentsInClasses(ctx context.Context, classIDs []uint) ([]models.User, error) {
	if len(classIDs) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleStudent).
		Where("class_id IN ?", classIDs).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&total).Error
	return total, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *userRepository) ReplaceTeachingClasses(ctx context.Context, user *models.User, classIDs []uint) error {
	db := r.db.WithContext(ctx)
	classes := []models.Class{}
	if len(classIDs) > 0 {
		if err := db.Where("id IN ?", classIDs).Order("id ASC").Find(&classes).Error; err != nil {
			return err
		}
	}
	if err := db.Model(user).Association("Classes").Replace(classes); err != nil {
		return err
	}
	user.Classes = classes
	return nil
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM class_teachers WHERE user_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
