package server

import (
	"marketgate/internal/models"
	"marketgate/internal/moderation"
	"marketgate/internal/service"

	"github.com/gofiber/fiber/v2"
)

type submitListingRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	ContactPhone string   `json:"contact_phone"`
	ContactEmail string   `json:"contact_email"`
	Price        float64  `json:"price"`
}

// moderationResponse is the body returned after a moderation run.
type moderationResponse struct {
	Listing              *models.Listing        `json:"listing"`
	ReviewID             uint                   `json:"review_id"`
	Decision             moderation.Decision    `json:"decision"`
	Confidence           int                    `json:"confidence"`
	Reasons              []string               `json:"reasons"`
	RequiresManualReview bool                   `json:"requires_manual_review"`
	ReasonMessages       []string               `json:"reason_messages,omitempty"`
	FlaggedPhrases       []string               `json:"flagged_phrases,omitempty"`
	Explanation          string                 `json:"explanation"`
	Strike               *service.StrikeOutcome `json:"strike,omitempty"`
	Details              *moderation.Details    `json:"details,omitempty"`
}

func newModerationResponse(out *service.ModerationOutcome) moderationResponse {
	r := out.Result
	resp := moderationResponse{
		Listing:              out.Listing,
		ReviewID:             out.Review.ID,
		Decision:             r.Decision,
		Confidence:           r.Confidence,
		Reasons:              r.Reasons,
		RequiresManualReview: r.RequiresManualReview,
		Explanation:          moderation.Explanation(r),
		Strike:               out.Strike,
	}
	if r.Decision == moderation.DecisionRejected {
		resp.ReasonMessages = moderation.ReasonMessages(r.Reasons)
		resp.FlaggedPhrases = r.FlaggedPhrases()
		resp.Details = &r.Details
	}
	return resp
}

// statusForDecision maps a decision to the HTTP status of the submit response.
func statusForDecision(d moderation.Decision) int {
	switch d {
	case moderation.DecisionApproved:
		return fiber.StatusCreated
	case moderation.DecisionRejected:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusAccepted
	}
}

// SubmitListing handles POST /api/listings.
func (s *Server) SubmitListing(c *fiber.Ctx) error {
	var req submitListingRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	out, err := s.moderationService.SubmitListing(c.UserContext(), service.SubmitListingInput{
		UserID:       currentUserID(c),
		Title:        req.Title,
		Description:  req.Description,
		Images:       req.Images,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Price:        req.Price,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(statusForDecision(out.Result.Decision)).JSON(newModerationResponse(out))
}

// ModerateListing handles POST /api/listings/:id/moderate after the seller edited a listing.
func (s *Server) ModerateListing(c *fiber.Ctx) error {
	listingID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	out, err := s.moderationService.ModerateListing(c.UserContext(), listingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(statusForDecision(out.Result.Decision)).JSON(newModerationResponse(out))
}

// GetModerationStatus handles GET /api/listings/:id/moderation.
func (s *Server) GetModerationStatus(c *fiber.Ctx) error {
	listingID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.moderationService.GetModerationStatus(c.UserContext(), listingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetListingHistory handles GET /api/listings/:id/moderation/history.
func (s *Server) GetListingHistory(c *fiber.Ctx) error {
	listingID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	reviews, err := s.moderationService.ListingHistory(c.UserContext(), listingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

// ListPublishedListings handles GET /api/listings. Only approved, published listings are returned.
func (s *Server) ListPublishedListings(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	listings, err := s.moderationService.ListPublished(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listings)
}

type appealRequest struct {
	Reason string `json:"reason"`
}

// SubmitAppeal handles POST /api/reviews/:id/appeal.
func (s *Server) SubmitAppeal(c *fiber.Ctx) error {
	reviewID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req appealRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.moderationService.SubmitAppeal(c.UserContext(), currentUserID(c), reviewID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Apelación enviada. Un moderador revisará tu anuncio.",
		"review":  review,
	})
}
