package repository

import (
	"context"

	"marketgate/internal/models"
	"marketgate/internal/observability"

	"gorm.io/gorm"
)

// ReviewRepository persists moderation reviews. Old reviews are kept as history.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.ModerationReview) error
	Update(ctx context.Context, review *models.ModerationReview) error
	GetByID(ctx context.Context, id uint) (*models.ModerationReview, error)
	ListByStatus(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.ModerationReview, error)
	ListByListing(ctx context.Context, listingID uint) ([]models.ModerationReview, error)
}

type reviewRepository struct {
	db  *gorm.DB
	log *observability.StoreLogger
}

// NewReviewRepository returns a new ReviewRepository implementation.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db, log: observability.NewStoreLogger("moderation_reviews")}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.ModerationReview) error {
	if err := r.db.WithContext(ctx).Omit("Listing").Create(review).Error; err != nil {
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Created(ctx, "review_id", review.ID, "listing_id", review.ListingID)
	return nil
}

func (r *reviewRepository) Update(ctx context.Context, review *models.ModerationReview) error {
	if err := r.db.WithContext(ctx).Omit("Listing").Save(review).Error; err != nil {
		r.log.Failed(ctx, "update", err)
		return models.NewInternalError(err)
	}
	r.log.Updated(ctx, "review_id", review.ID, "status", review.Status)
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*models.ModerationReview, error) {
	var review models.ModerationReview
	if err := r.db.WithContext(ctx).Preload("Listing").First(&review, id).Error; err != nil {
		return nil, notFoundOr(err, "Review", id)
	}
	return &review, nil
}

func (r *reviewRepository) ListByStatus(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.ModerationReview, error) {
	limit, offset = clampPage(limit, offset)
	var reviews []models.ModerationReview
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reviews, nil
}

func (r *reviewRepository) ListByListing(ctx context.Context, listingID uint) ([]models.ModerationReview, error) {
	var reviews []models.ModerationReview
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reviews, nil
}
