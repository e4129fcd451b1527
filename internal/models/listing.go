// Package models contains data structures for the application's domain models.
package models

import "time"

// ModerationStatus is the moderation state mirrored on a listing.
type ModerationStatus string

// Listing moderation states.
const (
	ModerationNone     ModerationStatus = "none"
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationAppealed ModerationStatus = "appealed"
)

// Listing is a marketplace item submitted by a seller.
// Content fields belong to the seller; ModerationStatus, ModerationReviewID and
// IsPublished are only written by the moderation workflow.
type Listing struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	UserID             uint             `gorm:"not null;index" json:"user_id"`
	Title              string           `gorm:"size:200;not null" json:"title"`
	Description        string           `gorm:"type:text;not null" json:"description"`
	Images             []string         `gorm:"serializer:json" json:"images"`
	ContactPhone       string           `gorm:"size:40" json:"contact_phone,omitempty"`
	ContactEmail       string           `gorm:"size:120" json:"contact_email,omitempty"`
	Price              float64          `json:"price"`
	ModerationStatus   ModerationStatus `gorm:"size:20;not null;default:'none';index" json:"moderation_status"`
	ModerationReviewID *uint            `json:"moderation_review_id,omitempty"`
	IsPublished        bool             `gorm:"not null;default:false;index" json:"is_published"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Listing) TableName() string {
	return "listings"
}
