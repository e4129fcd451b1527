package models

import (
	"encoding/json"
	"time"
)

// ReviewStatus is the lifecycle state of a moderation review.
type ReviewStatus string

// Review states.
const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewAppealed ReviewStatus = "appealed"
)

// ModerationReview records one moderation attempt of a listing.
// ReviewedBy is nil while the decision is automated.
type ModerationReview struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ListingID    uint            `gorm:"not null;index" json:"listing_id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	AIDecision   string          `gorm:"size:20" json:"ai_decision"`
	Confidence   int             `json:"confidence"`
	Reasons      []string        `gorm:"serializer:json" json:"reasons"`
	TextScore    int             `json:"text_score"`
	ImageScores  []int           `gorm:"serializer:json" json:"image_scores"`
	Analysis     json.RawMessage `gorm:"type:text" json:"analysis,omitempty"`
	Status       ReviewStatus    `gorm:"size:20;not null;index" json:"status"`
	AppealReason string          `gorm:"type:text" json:"appeal_reason,omitempty"`
	AppealedAt   *time.Time      `json:"appealed_at,omitempty"`
	ReviewedBy   *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
	ReviewNotes  string          `gorm:"type:text" json:"review_notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

// TableName specifies the table name for GORM.
func (ModerationReview) TableName() string {
	return "moderation_reviews"
}
