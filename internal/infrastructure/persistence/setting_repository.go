package persistence

import (
	"context"
	"errors"

	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingRepository stores venue-wide key/value settings
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// Get returns the value stored under key
func (r *GormSettingRepository) Get(ctx context.Context, key string) (string, error) {
	var model models.SettingModel
	if err := r.db.WithContext(ctx).
		First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return model.Value, nil
}

// Set upserts the value stored under key
func (r *GormSettingRepository) Set(ctx context.Context, key, value string) error {
	model := &models.SettingModel{Key: key, Value: value}
	model.FromDomainBaseEntity(shared.NewBaseEntity())
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(model).Error
}
