package server

import (
	"strings"

	"marketgate/internal/models"
	"marketgate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetReviewQueue handles GET /api/admin/moderation/queue?status=pending|appealed.
func (s *Server) GetReviewQueue(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	status := models.ReviewStatus(strings.ToLower(c.Query("status", string(models.ReviewPending))))

	reviews, err := s.moderationService.ListReviewQueue(c.UserContext(), status, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

type resolveReviewRequest struct {
	Decision models.ReviewStatus `json:"decision"`
	Notes    string              `json:"notes"`
}

// ResolveReview handles POST /api/admin/moderation/reviews/:id/decision.
func (s *Server) ResolveReview(c *fiber.Ctx) error {
	reviewID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req resolveReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.moderationService.ResolveReview(c.UserContext(), currentUserID(c), reviewID, req.Decision, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

// GetRejectionLog handles GET /api/admin/moderation/rejections?window=24h|7d|30d.
func (s *Server) GetRejectionLog(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	entries, err := s.moderationService.RejectionLog(c.UserContext(), c.Query("window", service.Window24h), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// GetAuditLog handles GET /api/admin/audit?target_type=&target_id= and
// GET /api/admin/audit?action=&since=.
func (s *Server) GetAuditLog(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	if action := c.Query("action"); action != "" {
		since, err := s.auditService.Since(c.Query("since"))
		if err != nil {
			return respondError(c, err)
		}
		entries, err := s.auditService.Recent(c.UserContext(), action, since, page.Limit, page.Offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	}
	entries, err := s.auditService.ByTarget(c.UserContext(), c.Query("target_type"), c.Query("target_id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// GetBlacklist handles GET /api/admin/blacklist.
func (s *Server) GetBlacklist(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	entries, err := s.blacklistService.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// AddBlacklistEntry handles POST /api/admin/blacklist.
func (s *Server) AddBlacklistEntry(c *fiber.Ctx) error {
	var req service.AddBlacklistInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	entry, err := s.blacklistService.Add(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// RemoveBlacklistEntry handles DELETE /api/admin/blacklist/:id.
func (s *Server) RemoveBlacklistEntry(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.blacklistService.Remove(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blacklist entry removed"})
}

// GetSettings handles GET /api/admin/settings.
func (s *Server) GetSettings(c *fiber.Ctx) error {
	settings, err := s.settingsService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"settings":  settings,
		"effective": s.settingsService.Snapshot(c.UserContext()),
	})
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting handles PUT /api/admin/settings/:key.
func (s *Server) UpdateSetting(c *fiber.Ctx) error {
	var req updateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	setting, err := s.settingsService.Update(c.UserContext(), currentUserID(c), c.Params("key"), req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(setting)
}

// UnbanUser handles POST /api/admin/users/:id/unban.
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.enforcementService.Unban(c.UserContext(), currentUserID(c), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unbanned"})
}

// ResetUserStrikes handles POST /api/admin/users/:id/reset-strikes.
func (s *Server) ResetUserStrikes(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.enforcementService.ResetStrikes(c.UserContext(), currentUserID(c), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Strikes reset"})
}
