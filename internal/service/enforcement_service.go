package service

import (
	"context"
	"fmt"
	"log/slog"

	"marketgate/internal/models"
	"marketgate/internal/notifications"
	"marketgate/internal/observability"
	"marketgate/internal/repository"
)

// StrikeOutcome reports what one automated rejection did to the owner's account.
type StrikeOutcome struct {
	Strikes int  `json:"strikes"`
	Banned  bool `json:"banned"`
	Exempt  bool `json:"exempt,omitempty"`
}

// EnforcementService tracks strikes and suspends accounts.
type EnforcementService struct {
	users    repository.UserRepository
	audit    *AuditService
	notifier *notifications.Notifier
}

// NewEnforcementService returns a new EnforcementService. notifier may be nil.
func NewEnforcementService(users repository.UserRepository, audit *AuditService, notifier *notifications.Notifier) *EnforcementService {
	return &EnforcementService{users: users, audit: audit, notifier: notifier}
}

// EnsureCanSubmit returns the user or a FORBIDDEN error when the account is banned.
func (s *EnforcementService) EnsureCanSubmit(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Account is suspended: " + user.BanReason)
	}
	return user, nil
}

// RecordRejection adds one strike for an automated rejection and bans the account when the
// new count reaches maxStrikes. Admin accounts are exempt.
func (s *EnforcementService) RecordRejection(ctx context.Context, userID, reviewID uint, maxStrikes int) (StrikeOutcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return StrikeOutcome{}, err
	}
	if user.IsAdmin() {
		return StrikeOutcome{Strikes: user.ModerationStrikes, Exempt: true}, nil
	}

	strikes, err := s.users.IncrementStrikes(ctx, userID)
	if err != nil {
		return StrikeOutcome{}, err
	}
	observability.StrikesIssued.Inc()
	s.audit.Record(ctx, AuditEvent{
		Action:     models.AuditStrikeAdded,
		TargetType: models.TargetUser,
		TargetID:   idString(userID),
		Details:    map[string]any{"review_id": reviewID, "strikes": strikes},
	})

	outcome := StrikeOutcome{Strikes: strikes}
	if strikes < maxStrikes || user.IsBanned {
		return outcome, nil
	}

	reason := fmt.Sprintf("Cuenta suspendida automáticamente: %d infracciones de moderación", strikes)
	if err := s.users.Ban(ctx, userID, reason); err != nil {
		return outcome, err
	}
	outcome.Banned = true
	observability.BansIssued.Inc()
	slog.WarnContext(ctx, "account suspended by enforcement", "user_id", userID, "strikes", strikes)

	s.audit.Record(ctx, AuditEvent{
		Action:     models.AuditUserBanned,
		TargetType: models.TargetUser,
		TargetID:   idString(userID),
		Details:    map[string]any{"reason": reason, "strikes": strikes, "review_id": reviewID},
	})
	if err := s.notifier.PublishModeration(ctx, userID, notifications.ModerationEvent{
		Type:    notifications.EventAccountBanned,
		Message: reason,
	}); err != nil {
		slog.WarnContext(ctx, "failed to notify banned user", "user_id", userID, "error", err)
	}
	return outcome, nil
}

// Unban lifts a suspension. Strikes are kept.
func (s *EnforcementService) Unban(ctx context.Context, adminID, userID uint) error {
	if err := s.users.Unban(ctx, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditUserUnbanned,
		TargetType:  models.TargetUser,
		TargetID:    idString(userID),
		PerformedBy: actorID(adminID),
	})
	return nil
}

// ResetStrikes clears the strike counter.
func (s *EnforcementService) ResetStrikes(ctx context.Context, adminID, userID uint) error {
	if err := s.users.ResetStrikes(ctx, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditStrikesReset,
		TargetType:  models.TargetUser,
		TargetID:    idString(userID),
		PerformedBy: actorID(adminID),
	})
	return nil
}
