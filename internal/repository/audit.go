package repository

import (
	"context"
	"time"

	"marketgate/internal/models"

	"gorm.io/gorm"
)

// AuditRepository is append-only: entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetType, targetID string, limit, offset int) ([]models.AuditLogEntry, error)
	// ListByAction returns entries of one action created at or after since, newest first.
	ListByAction(ctx context.Context, action string, since time.Time, limit, offset int) ([]models.AuditLogEntry, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns a new AuditRepository implementation.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditRepository) ListByTarget(ctx context.Context, targetType, targetID string, limit, offset int) ([]models.AuditLogEntry, error) {
	limit, offset = clampPage(limit, offset)
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *auditRepository) ListByAction(ctx context.Context, action string, since time.Time, limit, offset int) ([]models.AuditLogEntry, error) {
	limit, offset = clampPage(limit, offset)
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("action = ? AND created_at >= ?", action, since).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}
