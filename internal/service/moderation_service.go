package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"marketgate/internal/models"
	"marketgate/internal/moderation"
	"marketgate/internal/notifications"
	"marketgate/internal/observability"
	"marketgate/internal/repository"
)

// Moderator evaluates one listing. *moderation.Pipeline implements it.
type Moderator interface {
	Run(ctx context.Context, in moderation.Input, policy moderation.Policy, blacklist []models.BlacklistEntry) moderation.Result
}

// ModerationDeps are the collaborators of a ModerationService. Notifier may be nil.
type ModerationDeps struct {
	Listings    repository.ListingRepository
	Reviews     repository.ReviewRepository
	Users       repository.UserRepository
	Pipeline    Moderator
	Settings    *SettingsService
	Blacklist   *BlacklistService
	Enforcement *EnforcementService
	Audit       *AuditService
	Notifier    *notifications.Notifier
}

// ModerationService drives a listing through pending, approved, rejected and appealed.
type ModerationService struct {
	listings    repository.ListingRepository
	reviews     repository.ReviewRepository
	users       repository.UserRepository
	pipeline    Moderator
	settings    *SettingsService
	blacklist   *BlacklistService
	enforcement *EnforcementService
	audit       *AuditService
	notifier    *notifications.Notifier
	now         func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(deps ModerationDeps) *ModerationService {
	return &ModerationService{
		listings:    deps.Listings,
		reviews:     deps.Reviews,
		users:       deps.Users,
		pipeline:    deps.Pipeline,
		settings:    deps.Settings,
		blacklist:   deps.Blacklist,
		enforcement: deps.Enforcement,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		now:         time.Now,
	}
}

type SubmitListingInput struct {
	UserID       uint
	Title        string
	Description  string
	Images       []string
	ContactPhone string
	ContactEmail string
	Price        float64
}

// ModerationOutcome is what a moderation run left behind.
type ModerationOutcome struct {
	Listing *models.Listing
	Review  *models.ModerationReview
	Result  moderation.Result
	Strike  *StrikeOutcome
}

// ModerationStatusView is the owner-facing state of a listing.
type ModerationStatusView struct {
	ListingID      uint                     `json:"listing_id"`
	Status         models.ModerationStatus  `json:"moderation_status"`
	IsPublished    bool                     `json:"is_published"`
	Review         *models.ModerationReview `json:"review,omitempty"`
	Reasons        []string                 `json:"reasons"`
	ReasonMessages []string                 `json:"reason_messages"`
	FlaggedPhrases []string                 `json:"flagged_phrases"`
	Explanation    string                   `json:"explanation,omitempty"`
	CanAppeal      bool                     `json:"can_appeal"`
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 10000
	maxListingImages  = 20
)

func validateListingInput(in SubmitListingInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Description) == "" {
		return models.NewValidationError("Description is required")
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return models.NewValidationError("Description too long (max 10000 characters)")
	}
	if len(in.Images) > maxListingImages {
		return models.NewValidationError("Too many images (max 20)")
	}
	if in.Price < 0 {
		return models.NewValidationError("Price must not be negative")
	}
	return nil
}

// SubmitListing stores a new listing unpublished and moderates it. Banned sellers are
// refused before anything is stored.
func (s *ModerationService) SubmitListing(ctx context.Context, in SubmitListingInput) (*ModerationOutcome, error) {
	if _, err := s.enforcement.EnsureCanSubmit(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := validateListingInput(in); err != nil {
		return nil, err
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	listing := &models.Listing{
		UserID:           in.UserID,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Images:           images,
		ContactPhone:     strings.TrimSpace(in.ContactPhone),
		ContactEmail:     strings.TrimSpace(in.ContactEmail),
		Price:            in.Price,
		ModerationStatus: models.ModerationPending,
		IsPublished:      false,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	return s.moderate(ctx, listing)
}

// ModerateListing re-runs moderation after the seller edited a listing. The new review
// becomes the active one and the listing stays hidden until it is approved.
func (s *ModerationService) ModerateListing(ctx context.Context, listingID, actorID uint) (*ModerationOutcome, error) {
	actor, err := s.enforcement.EnsureCanSubmit(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != actorID && !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only the owner can request moderation of this listing")
	}
	return s.moderate(ctx, listing)
}

func (s *ModerationService) moderate(ctx context.Context, listing *models.Listing) (*ModerationOutcome, error) {
	policy := s.settings.Snapshot(ctx)
	blacklist := s.blacklist.Active(ctx)

	review := &models.ModerationReview{
		ListingID:   listing.ID,
		UserID:      listing.UserID,
		Status:      models.ReviewPending,
		Reasons:     []string{},
		ImageScores: []int{},
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	if err := s.listings.UpdateModerationState(ctx, listing.ID, models.ModerationPending, &review.ID); err != nil {
		return nil, err
	}
	if err := s.listings.Unpublish(ctx, listing.ID); err != nil {
		return nil, err
	}
	listing.ModerationStatus = models.ModerationPending
	listing.ModerationReviewID = &review.ID
	listing.IsPublished = false

	result := s.pipeline.Run(ctx, moderation.InputFromListing(listing), policy, blacklist)

	analysis, err := json.Marshal(result)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	review.AIDecision = string(result.Decision)
	review.Confidence = result.Confidence
	review.Reasons = result.Reasons
	review.TextScore = result.Details.TextAnalysis.Score
	review.ImageScores = result.ImageScores()
	review.Analysis = analysis

	outcome := &ModerationOutcome{Listing: listing, Review: review, Result: result}
	event := notifications.ModerationEvent{
		ListingID: listing.ID,
		ReviewID:  review.ID,
		Decision:  string(result.Decision),
		Message:   moderation.Explanation(result),
		Reasons:   result.Reasons,
	}

	switch result.Decision {
	case moderation.DecisionApproved:
		review.Status = models.ReviewApproved
		if err := s.reviews.Update(ctx, review); err != nil {
			return nil, err
		}
		if err := s.listings.UpdateModerationState(ctx, listing.ID, models.ModerationApproved, &review.ID); err != nil {
			return nil, err
		}
		if err := s.listings.Publish(ctx, listing.ID); err != nil {
			return nil, err
		}
		listing.ModerationStatus = models.ModerationApproved
		listing.IsPublished = true
		s.recordDecision(ctx, models.AuditAutoApproved, listing, review, result)
		event.Type = notifications.EventListingApproved

	case moderation.DecisionRejected:
		review.Status = models.ReviewRejected
		if err := s.reviews.Update(ctx, review); err != nil {
			return nil, err
		}
		if err := s.listings.UpdateModerationState(ctx, listing.ID, models.ModerationRejected, &review.ID); err != nil {
			return nil, err
		}
		listing.ModerationStatus = models.ModerationRejected
		s.recordDecision(ctx, models.AuditAutoRejected, listing, review, result)

		strike, err := s.enforcement.RecordRejection(ctx, listing.UserID, review.ID, policy.MaxStrikesBeforeBan)
		if err != nil {
			// The rejection itself is already persisted.
			slog.ErrorContext(ctx, "failed to record strike", "user_id", listing.UserID, "review_id", review.ID, "error", err)
		} else {
			outcome.Strike = &strike
		}
		event.Type = notifications.EventListingRejected

	default:
		review.Status = models.ReviewPending
		if err := s.reviews.Update(ctx, review); err != nil {
			return nil, err
		}
		s.recordDecision(ctx, models.AuditAutoHeld, listing, review, result)
		event.Type = notifications.EventListingHeld
	}

	s.notify(ctx, listing.UserID, event)
	return outcome, nil
}

func (s *ModerationService) recordDecision(ctx context.Context, action string, listing *models.Listing, review *models.ModerationReview, result moderation.Result) {
	s.audit.Record(ctx, AuditEvent{
		Action:     action,
		TargetType: models.TargetListing,
		TargetID:   idString(listing.ID),
		Details: map[string]any{
			"review_id":              review.ID,
			"user_id":                listing.UserID,
			"confidence":             result.Confidence,
			"threshold":              result.Threshold,
			"reasons":                result.Reasons,
			"requires_manual_review": result.RequiresManualReview,
			"unverified":             result.Unverified,
		},
	})
}

func (s *ModerationService) notify(ctx context.Context, userID uint, event notifications.ModerationEvent) {
	if err := s.notifier.PublishModeration(ctx, userID, event); err != nil {
		slog.WarnContext(ctx, "failed to notify listing owner", "user_id", userID, "event", event.Type, "error", err)
	}
}

// SubmitAppeal moves the owner's rejected active review to appealed. A review can be
// appealed once.
func (s *ModerationService) SubmitAppeal(ctx context.Context, userID, reviewID uint, reason string) (*models.ModerationReview, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	listing := review.Listing
	if listing == nil {
		if listing, err = s.listings.GetByID(ctx, review.ListingID); err != nil {
			return nil, err
		}
	}
	if listing.UserID != userID {
		return nil, models.NewForbiddenError("Only the listing owner can appeal this review")
	}
	if listing.ModerationReviewID == nil || *listing.ModerationReviewID != review.ID {
		return nil, models.NewValidationError("Only the current review of a listing can be appealed")
	}
	if review.Status == models.ReviewAppealed || review.AppealedAt != nil {
		return nil, models.ErrAlreadyAppealed
	}
	if review.Status != models.ReviewRejected {
		return nil, models.NewValidationError("Only rejected listings can be appealed")
	}

	policy := s.settings.Snapshot(ctx)
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < policy.MinAppealReasonLength {
		return nil, models.NewValidationError("Appeal reason is too short")
	}
	slog.InfoContext(ctx, "appeal submitted",
		"review_id", review.ID,
		"listing_id", listing.ID,
		"max_appeals_per_listing", policy.MaxAppealsPerListing,
	)

	now := s.now()
	review.Status = models.ReviewAppealed
	review.AppealReason = reason
	review.AppealedAt = &now
	review.Listing = nil
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	if err := s.listings.UpdateModerationState(ctx, listing.ID, models.ModerationAppealed, &review.ID); err != nil {
		return nil, err
	}
	observability.AppealsSubmitted.Inc()

	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditAppealSubmitted,
		TargetType:  models.TargetReview,
		TargetID:    idString(review.ID),
		PerformedBy: &userID,
		Details:     map[string]any{"listing_id": listing.ID, "reason": reason},
	})
	return review, nil
}

// ResolveReview records a moderator's decision on a pending or appealed review.
// Manual rejections never add strikes.
func (s *ModerationService) ResolveReview(ctx context.Context, reviewerID, reviewID uint, decision models.ReviewStatus, notes string) (*models.ModerationReview, error) {
	if decision != models.ReviewApproved && decision != models.ReviewRejected {
		return nil, models.NewValidationError("decision must be approved or rejected")
	}
	reviewer, err := s.users.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	previous := review.Status
	if previous != models.ReviewPending && previous != models.ReviewAppealed {
		return nil, models.NewConflictError("Review is already resolved")
	}
	listing := review.Listing
	if listing == nil {
		if listing, err = s.listings.GetByID(ctx, review.ListingID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	review.Status = decision
	review.ReviewedBy = &reviewerID
	review.ReviewedAt = &now
	review.ReviewNotes = strings.TrimSpace(notes)
	review.Listing = nil
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	if listing.ModerationReviewID != nil && *listing.ModerationReviewID == review.ID {
		status := models.ModerationApproved
		if decision == models.ReviewRejected {
			status = models.ModerationRejected
		}
		if err := s.listings.UpdateModerationState(ctx, listing.ID, status, &review.ID); err != nil {
			return nil, err
		}
		if decision == models.ReviewApproved {
			err = s.listings.Publish(ctx, listing.ID)
		} else {
			err = s.listings.Unpublish(ctx, listing.ID)
		}
		if err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditManualReview,
		TargetType:  models.TargetReview,
		TargetID:    idString(review.ID),
		PerformedBy: &reviewerID,
		Details: map[string]any{
			"listing_id":      listing.ID,
			"decision":        decision,
			"previous_status": previous,
			"notes":           review.ReviewNotes,
		},
	})

	eventType := notifications.EventListingApproved
	switch {
	case previous == models.ReviewAppealed:
		eventType = notifications.EventAppealResolved
	case decision == models.ReviewRejected:
		eventType = notifications.EventListingRejected
	}
	s.notify(ctx, listing.UserID, notifications.ModerationEvent{
		Type:      eventType,
		ListingID: listing.ID,
		ReviewID:  review.ID,
		Decision:  string(decision),
		Message:   review.ReviewNotes,
	})
	return review, nil
}

// GetModerationStatus returns the listing's state and its active review to the owner or an admin.
func (s *ModerationService) GetModerationStatus(ctx context.Context, listingID, viewerID uint) (*ModerationStatusView, error) {
	listing, err := s.ownedListing(ctx, listingID, viewerID)
	if err != nil {
		return nil, err
	}
	view := &ModerationStatusView{
		ListingID:      listing.ID,
		Status:         listing.ModerationStatus,
		IsPublished:    listing.IsPublished,
		Reasons:        []string{},
		ReasonMessages: []string{},
		FlaggedPhrases: []string{},
	}
	if listing.ModerationReviewID == nil {
		return view, nil
	}

	review, err := s.reviews.GetByID(ctx, *listing.ModerationReviewID)
	if err != nil {
		return nil, err
	}
	review.Listing = nil
	view.Review = review
	view.Reasons = nonNilStrings(review.Reasons)
	view.ReasonMessages = moderation.ReasonMessages(view.Reasons)
	view.CanAppeal = review.Status == models.ReviewRejected && review.AppealedAt == nil

	if len(review.Analysis) > 0 {
		var result moderation.Result
		if err := json.Unmarshal(review.Analysis, &result); err != nil {
			slog.WarnContext(ctx, "stored analysis not decodable", "review_id", review.ID, "error", err)
		} else {
			view.FlaggedPhrases = nonNilStrings(result.FlaggedPhrases())
			view.Explanation = moderation.Explanation(result)
		}
	}
	return view, nil
}

// ListingHistory returns every review of a listing, newest first.
func (s *ModerationService) ListingHistory(ctx context.Context, listingID, viewerID uint) ([]models.ModerationReview, error) {
	if _, err := s.ownedListing(ctx, listingID, viewerID); err != nil {
		return nil, err
	}
	return s.reviews.ListByListing(ctx, listingID)
}

// ListReviewQueue returns reviews waiting for a moderator, oldest first.
func (s *ModerationService) ListReviewQueue(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.ModerationReview, error) {
	if status == "" {
		status = models.ReviewPending
	}
	if status != models.ReviewPending && status != models.ReviewAppealed {
		return nil, models.NewValidationError("status must be pending or appealed")
	}
	return s.reviews.ListByStatus(ctx, status, limit, offset)
}

// RejectionLog returns automated rejections within window (24h, 7d or 30d).
func (s *ModerationService) RejectionLog(ctx context.Context, window string, limit, offset int) ([]models.AuditLogEntry, error) {
	return s.audit.RejectionFeed(ctx, window, limit, offset)
}

// ListPublished returns approved, visible listings.
func (s *ModerationService) ListPublished(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	return s.listings.ListPublished(ctx, limit, offset)
}

func (s *ModerationService) ownedListing(ctx context.Context, listingID, viewerID uint) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID == viewerID {
		return listing, nil
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("You do not have access to this listing")
	}
	return listing, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
