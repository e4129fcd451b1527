// Package service contains the moderation workflow: the listing state machine, account
// enforcement, the audit trail and the admin-managed policy (settings and blacklist).
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"marketgate/internal/models"
	"marketgate/internal/repository"

	"github.com/google/uuid"
)

// Rejection feed windows.
const (
	Window24h = "24h"
	Window7d  = "7d"
	Window30d = "30d"
)

// AuditEvent is one state-changing action to record.
type AuditEvent struct {
	Action      string
	TargetType  string
	TargetID    string
	PerformedBy *uint
	Details     map[string]any
}

// AuditService appends to and queries the audit trail.
type AuditService struct {
	repo repository.AuditRepository
	now  func() time.Time
}

// NewAuditService returns a new AuditService.
func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo, now: time.Now}
}

// Record appends one entry. Failures are logged and never returned: the audit trail must not
// block the action it describes.
func (s *AuditService) Record(ctx context.Context, ev AuditEvent) {
	entry := &models.AuditLogEntry{
		EventID:     uuid.NewString(),
		Action:      ev.Action,
		TargetType:  ev.TargetType,
		TargetID:    ev.TargetID,
		PerformedBy: ev.PerformedBy,
		CreatedAt:   s.now(),
	}
	if entry.PerformedBy != nil && *entry.PerformedBy == 0 {
		entry.PerformedBy = nil
	}
	if len(ev.Details) > 0 {
		details, err := json.Marshal(ev.Details)
		if err != nil {
			slog.WarnContext(ctx, "audit details not encodable", "action", ev.Action, "error", err)
		} else {
			entry.Details = details
		}
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to append audit entry",
			"action", ev.Action,
			"target_type", ev.TargetType,
			"target_id", ev.TargetID,
			"error", err,
		)
	}
}

// ByTarget lists entries for one target, newest first.
func (s *AuditService) ByTarget(ctx context.Context, targetType, targetID string, limit, offset int) ([]models.AuditLogEntry, error) {
	if targetType == "" || targetID == "" {
		return nil, models.NewValidationError("target_type and target_id are required")
	}
	return s.repo.ListByTarget(ctx, targetType, targetID, limit, offset)
}

// Recent lists entries of one action since a point in time, newest first.
func (s *AuditService) Recent(ctx context.Context, action string, since time.Time, limit, offset int) ([]models.AuditLogEntry, error) {
	if action == "" {
		return nil, models.NewValidationError("action is required")
	}
	return s.repo.ListByAction(ctx, action, since, limit, offset)
}

// Since resolves a feed window name (24h, 7d, 30d) or an RFC 3339 timestamp to a start time.
func (s *AuditService) Since(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	d, err := ParseWindow(value)
	if err != nil {
		return time.Time{}, models.NewValidationError("since must be 24h, 7d, 30d or an RFC 3339 timestamp")
	}
	return s.now().Add(-d), nil
}

// RejectionFeed lists automated rejections inside a window (24h, 7d or 30d; empty means 24h).
func (s *AuditService) RejectionFeed(ctx context.Context, window string, limit, offset int) ([]models.AuditLogEntry, error) {
	d, err := ParseWindow(window)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByAction(ctx, models.AuditAutoRejected, s.now().Add(-d), limit, offset)
}

// actorID returns nil for 0, which operator tooling passes when no admin account is named.
func actorID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseWindow converts a feed window name to a duration.
func ParseWindow(window string) (time.Duration, error) {
	switch window {
	case "", Window24h:
		return 24 * time.Hour, nil
	case Window7d:
		return 7 * 24 * time.Hour, nil
	case Window30d:
		return 30 * 24 * time.Hour, nil
	}
	return 0, models.NewValidationError("window must be one of 24h, 7d, 30d")
}
