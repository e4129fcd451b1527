package models

import (
	"encoding/json"
	"time"
)

// Audit actions.
const (
	AuditAutoApproved    = "auto_approved"
	AuditAutoRejected    = "auto_rejected"
	AuditAutoHeld        = "auto_held"
	AuditManualReview    = "manual_review"
	AuditAppealSubmitted = "appeal_submitted"
	AuditStrikeAdded     = "strike_added"
	AuditUserBanned      = "user_banned"
	AuditUserUnbanned    = "user_unbanned"
	AuditStrikesReset    = "strikes_reset"
	AuditBlacklistAdded  = "blacklist_added"
	AuditBlacklistRemove = "blacklist_removed"
	AuditSettingUpdated  = "setting_updated"
)

// Audit target types.
const (
	TargetListing   = "listing"
	TargetReview    = "review"
	TargetUser      = "user"
	TargetBlacklist = "blacklist"
	TargetSetting   = "setting"
)

// AuditLogEntry is an append-only record of a state-changing action.
// PerformedBy is nil for actions taken by the automated pipeline.
type AuditLogEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	EventID     string          `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	Action      string          `gorm:"size:64;not null;index" json:"action"`
	TargetType  string          `gorm:"size:32;not null;index:idx_audit_target" json:"target_type"`
	TargetID    string          `gorm:"size:100;not null;index:idx_audit_target" json:"target_id"`
	PerformedBy *uint           `gorm:"index" json:"performed_by,omitempty"`
	Details     json.RawMessage `gorm:"type:text" json:"details,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
