package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// AchievementWithCount pairs an achievement with how many users unlocked it.
type AchievementWithCount struct {
	models.Achievement
	UnlockedCount int64 `json:"unlocked_count"`
}

// AchievementRepository persists achievement definitions and unlocks.
type AchievementRepository interface {
	List(ctx context.Context) ([]AchievementWithCount, error)
	GetByID(ctx context.Context, id uint) (models.Achievement, error)
	GetByName(ctx context.Context, name string) (models.Achievement, error)
	Create(ctx context.Context, achievement *models.Achievement) error
	Update(ctx context.Context, achievement *models.Achievement) error
	CountUnlocks(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint, cascade bool) error
	ListUnearned(ctx context.Context, userID uint) ([]models.Achievement, error)
	ListUnlocked(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	CountUnlocked(ctx context.Context, userID uint) (int64, error)
	Unlock(ctx context.Context, unlock *models.UserAchievement) (bool, error)
}

type achievementRepository struct {
	db *gorm.DB
}

// NewAchievementRepository constructs the achievement repository.
func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) List(ctx context.Context) ([]AchievementWithCount, error) {
	var achievements []models.Achievement
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&achievements).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		AchievementID uint
		Total         int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&models.UserAchievement{}).
		Select("achievement_id, COUNT(*) AS total").
		Group("achievement_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.AchievementID] = row.Total
	}

	result := make([]AchievementWithCount, 0, len(achievements))
	for _, achievement := range achievements {
		result = append(result, AchievementWithCount{Achievement: achievement, UnlockedCount: counts[achievement.ID]})
	}
	return result, nil
}

func (r *achievementRepository) GetByID(ctx context.Context, id uint) (models.Achievement, error) {
	var achievement models.Achievement
	if err := r.db.WithContext(ctx).First(&achievement, id).Error; err != nil {
		return models.Achievement{}, err
	}
	return achievement, nil
}

func (r *achievementRepository) GetByName(ctx context.Context, name string) (models.Achievement, error) {
	var achievement models.Achievement
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&achievement).Error; err != nil {
		return models.Achievement{}, err
	}
	return achievement, nil
}

func (r *achievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	return r.db.WithContext(ctx).Create(achievement).Error
}

func (r *achievementRepository) Update(ctx context.Context, achievement *models.Achievement) error {
	return r.db.WithContext(ctx).Save(achievement).Error
}

func (r *achievementRepository) CountUnlocks(ctx context.Context, id uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UserAchievement{}).Where("achievement_id = ?", id).Count(&total).Error
	return total, err
}

func (r *achievementRepository) Delete(ctx context.Context, id uint, cascade bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cascade {
			if err := tx.Where("achievement_id = ?", id).Delete(&models.UserAchievement{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Achievement{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *achievementRepository) ListUnearned(ctx context.Context, userID uint) ([]models.Achievement, error) {
	unlocked := r.db.Model(&models.UserAchievement{}).Select("achievement_id").Where("user_id = ?", userID)

	var achievements []models.Achievement
	if err := r.db.WithContext(ctx).
		Where("id NOT IN (?)", unlocked).
		Order("id ASC").
		Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

func (r *achievementRepository) ListUnlocked(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var unlocks []models.UserAchievement
	if err := r.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&unlocks).Error; err != nil {
		return nil, err
	}
	return unlocks, nil
}

func (r *achievementRepository) CountUnlocked(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// Unlock inserts the pair once. When the pair already exists the stored row is loaded into
// unlock and created is false.
func (r *achievementRepository) Unlock(ctx context.Context, unlock *models.UserAchievement) (bool, error) {
	err := r.db.WithContext(ctx).Omit("Achievement").Create(unlock).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	var existing models.UserAchievement
	if findErr := r.db.WithContext(ctx).
		Where("user_id = ? AND achievement_id = ?", unlock.UserID, unlock.AchievementID).
		First(&existing).Error; findErr != nil {
		return false, findErr
	}
	*unlock = existing
	return false, nil
}
