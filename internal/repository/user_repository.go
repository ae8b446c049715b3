package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/synergy-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FirstOrCreateByExternalUID(ctx context.Context, user *models.User) error {
	db := r.db.WithContext(ctx)

	err := db.Where("external_uid = ?", user.ExternalUID).First(user).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_uid"}},
		DoNothing: true,
	}).Create(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// A concurrent request provisioned the same subject first.
	user.ID = 0
	return db.Where("external_uid = ?", user.ExternalUID).First(user).Error
}

func (r *GormUserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormUserRepository) AdjustOpenTasks(ctx context.Context, id uint64, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("open_tasks_count", gorm.Expr("open_tasks_count + ?", delta)).Error
}

func (r *GormUserRepository) ListOpenTaskCounts(ctx context.Context) (map[uint64]int64, error) {
	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("id AS ref_id, open_tasks_count AS total").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *GormUserRepository) SetOpenTasksCount(ctx context.Context, id uint64, count int64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("open_tasks_count", count).Error
}
