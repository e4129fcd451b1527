package repository

import (
	"context"

	"marketgate/internal/models"
	"marketgate/internal/observability"

	"gorm.io/gorm"
)

// BlacklistRepository stores the admin-managed blacklist.
type BlacklistRepository interface {
	// ListActive returns active entries, optionally restricted to the given types.
	ListActive(ctx context.Context, types ...models.BlacklistType) ([]models.BlacklistEntry, error)
	List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error)
	Create(ctx context.Context, entry *models.BlacklistEntry) error
	Deactivate(ctx context.Context, id uint) error
}

type blacklistRepository struct {
	db  *gorm.DB
	log *observability.StoreLogger
}

// NewBlacklistRepository returns a new BlacklistRepository implementation.
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db, log: observability.NewStoreLogger("blacklist_entries")}
}

func (r *blacklistRepository) ListActive(ctx context.Context, types ...models.BlacklistType) ([]models.BlacklistEntry, error) {
	var entries []models.BlacklistEntry
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	if err := q.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *blacklistRepository) List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error) {
	limit, offset = clampPage(limit, offset)
	var entries []models.BlacklistEntry
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *blacklistRepository) Create(ctx context.Context, entry *models.BlacklistEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Created(ctx, "entry_id", entry.ID, "type", entry.Type)
	return nil
}

func (r *blacklistRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.BlacklistEntry{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		r.log.Failed(ctx, "deactivate", res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Blacklist entry", id)
	}
	r.log.Updated(ctx, "entry_id", id, "is_active", false)
	return nil
}
