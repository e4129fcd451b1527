package repository

import (
	"context"

	"marketgate/internal/models"
	"marketgate/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository stores tunable moderation settings.
type SettingRepository interface {
	GetAll(ctx context.Context) ([]models.ModerationSetting, error)
	Get(ctx context.Context, key string) (*models.ModerationSetting, error)
	Upsert(ctx context.Context, setting *models.ModerationSetting) error
}

type settingRepository struct {
	db  *gorm.DB
	log *observability.StoreLogger
}

// NewSettingRepository returns a new SettingRepository implementation.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db, log: observability.NewStoreLogger("moderation_settings")}
}

func (r *settingRepository) GetAll(ctx context.Context) ([]models.ModerationSetting, error) {
	var settings []models.ModerationSetting
	if err := r.db.WithContext(ctx).Order(`"key" ASC`).Find(&settings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return settings, nil
}

func (r *settingRepository) Get(ctx context.Context, key string) (*models.ModerationSetting, error) {
	var setting models.ModerationSetting
	if err := r.db.WithContext(ctx).Where(`"key" = ?`, key).First(&setting).Error; err != nil {
		return nil, notFoundOr(err, "Setting", key)
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *models.ModerationSetting) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "description", "updated_by", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		r.log.Failed(ctx, "upsert", err)
		return models.NewInternalError(err)
	}
	r.log.Updated(ctx, "key", setting.Key)
	return nil
}
