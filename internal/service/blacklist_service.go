package service

import (
	"context"
	"log/slog"
	"strings"

	"marketgate/internal/models"
	"marketgate/internal/repository"
)

// BlacklistService manages the dynamic blacklist.
type BlacklistService struct {
	repo  repository.BlacklistRepository
	audit *AuditService
}

// NewBlacklistService returns a new BlacklistService.
func NewBlacklistService(repo repository.BlacklistRepository, audit *AuditService) *BlacklistService {
	return &BlacklistService{repo: repo, audit: audit}
}

// Active returns the entries the pipeline matches against. Lookup errors are logged and
// yield an empty list.
func (s *BlacklistService) Active(ctx context.Context) []models.BlacklistEntry {
	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "blacklist lookup failed, moderating without it", "error", err)
		return nil
	}
	return entries
}

// List returns entries for the admin view.
func (s *BlacklistService) List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error) {
	return s.repo.List(ctx, limit, offset)
}

// AddBlacklistInput is an admin request to block a term or contact.
type AddBlacklistInput struct {
	Type   models.BlacklistType `json:"type"`
	Value  string               `json:"value"`
	Reason string               `json:"reason"`
}

// Add validates and stores a new active entry.
func (s *BlacklistService) Add(ctx context.Context, adminID uint, in AddBlacklistInput) (*models.BlacklistEntry, error) {
	in.Type = models.BlacklistType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if !in.Type.Valid() {
		return nil, models.NewValidationError("type must be one of word, phrase, email, phone")
	}
	value := strings.TrimSpace(in.Value)
	if value == "" {
		return nil, models.NewValidationError("value is required")
	}
	if len(value) > 255 {
		return nil, models.NewValidationError("value too long (max 255 characters)")
	}
	if in.Type == models.BlacklistWord && strings.ContainsAny(value, " \t") {
		return nil, models.NewValidationError("word entries must be a single word; use type phrase")
	}

	entry := &models.BlacklistEntry{
		Type:     in.Type,
		Value:    value,
		Reason:   strings.TrimSpace(in.Reason),
		AddedBy:  actorID(adminID),
		IsActive: true,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditBlacklistAdded,
		TargetType:  models.TargetBlacklist,
		TargetID:    idString(entry.ID),
		PerformedBy: actorID(adminID),
		Details:     map[string]any{"type": entry.Type, "value": entry.Value, "reason": entry.Reason},
	})
	return entry, nil
}

// Remove deactivates an entry. History is kept.
func (s *BlacklistService) Remove(ctx context.Context, adminID, id uint) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditBlacklistRemove,
		TargetType:  models.TargetBlacklist,
		TargetID:    idString(id),
		PerformedBy: actorID(adminID),
	})
	return nil
}
