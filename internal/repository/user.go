package repository

import (
	"context"
	"time"

	"marketgate/internal/models"
	"marketgate/internal/observability"

	"gorm.io/gorm"
)

// UserRepository persists the enforcement state of user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// IncrementStrikes adds one strike and returns the new count atomically.
	IncrementStrikes(ctx context.Context, id uint) (int, error)
	Ban(ctx context.Context, id uint, reason string) error
	Unban(ctx context.Context, id uint) error
	ResetStrikes(ctx context.Context, id uint) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.StoreLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewStoreLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Created(ctx, "user_id", user.ID)
	return nil
}

func (r *userRepository) IncrementStrikes(ctx context.Context, id uint) (int, error) {
	var strikes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", id).
			UpdateColumn("moderation_strikes", gorm.Expr("moderation_strikes + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.User{}).
			Select("moderation_strikes").
			Where("id = ?", id).
			Row().
			Scan(&strikes)
	})
	if err != nil {
		r.log.Failed(ctx, "increment_strikes", err)
		return 0, notFoundOr(err, "User", id)
	}
	r.log.Updated(ctx, "user_id", id, "moderation_strikes", strikes)
	return strikes, nil
}

func (r *userRepository) Ban(ctx context.Context, id uint, reason string) error {
	now := time.Now()
	return r.updateColumns(ctx, id, "ban", map[string]any{
		"is_banned":  true,
		"ban_reason": reason,
		"banned_at":  &now,
	})
}

func (r *userRepository) Unban(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, "unban", map[string]any{
		"is_banned":  false,
		"ban_reason": "",
		"banned_at":  nil,
	})
}

func (r *userRepository) ResetStrikes(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, "reset_strikes", map[string]any{"moderation_strikes": 0})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, op string, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		r.log.Failed(ctx, op, res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.log.Updated(ctx, "user_id", id, "operation", op)
	return nil
}
