package repository

import (
	"context"

	"marketgate/internal/models"
	"marketgate/internal/observability"

	"gorm.io/gorm"
)

// ListingRepository reads listings and writes their moderation state.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	UpdateModerationState(ctx context.Context, id uint, status models.ModerationStatus, reviewID *uint) error
	Publish(ctx context.Context, id uint) error
	Unpublish(ctx context.Context, id uint) error
	// ListPublished returns listings visible to the public: published and approved.
	ListPublished(ctx context.Context, limit, offset int) ([]models.Listing, error)
}

type listingRepository struct {
	db  *gorm.DB
	log *observability.StoreLogger
}

// NewListingRepository returns a new ListingRepository implementation.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db, log: observability.NewStoreLogger("listings")}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Created(ctx, "listing_id", listing.ID, "user_id", listing.UserID)
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, notFoundOr(err, "Listing", id)
	}
	return &listing, nil
}

func (r *listingRepository) UpdateModerationState(ctx context.Context, id uint, status models.ModerationStatus, reviewID *uint) error {
	values := map[string]any{"moderation_status": status}
	if reviewID != nil {
		values["moderation_review_id"] = *reviewID
	}
	return r.update(ctx, id, "moderation_state", values)
}

func (r *listingRepository) Publish(ctx context.Context, id uint) error {
	return r.update(ctx, id, "publish", map[string]any{"is_published": true})
}

func (r *listingRepository) Unpublish(ctx context.Context, id uint) error {
	return r.update(ctx, id, "unpublish", map[string]any{"is_published": false})
}

func (r *listingRepository) update(ctx context.Context, id uint, op string, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		r.log.Failed(ctx, op, res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Listing", id)
	}
	r.log.Updated(ctx, "listing_id", id, "operation", op)
	return nil
}

func (r *listingRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	limit, offset = clampPage(limit, offset)
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("is_published = ? AND moderation_status = ?", true, models.ModerationApproved).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}
