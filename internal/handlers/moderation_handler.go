package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	moderation *services.ModerationService
	reports    *services.ReportService
	now        services.Clock
}

func NewModerationHandler(moderation *services.ModerationService, reports *services.ReportService, now services.Clock) *ModerationHandler {
	if now == nil {
		now = services.SystemClock
	}
	return &ModerationHandler{moderation: moderation, reports: reports, now: now}
}

// banTerm turns a day count into a ban term. Zero days is permanent.
func (h *ModerationHandler) banTerm(days int) (services.BanTerm, error) {
	if days == 0 {
		return services.PermanentBan(), nil
	}
	return services.BanForDays(h.now(), days)
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reports.Create(c.UserContext(), actor.ID, req.ReportedID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil || req.BlockedID == uuid.Nil {
		return badRequest(c, "blocked_id is required")
	}

	if err := h.moderation.BlockUser(c.UserContext(), actor.ID, req.BlockedID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User blocked successfully"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	blockedID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.moderation.UnblockUser(c.UserContext(), actor.ID, blockedID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unblocked successfully"})
}

func (h *ModerationHandler) ListBlocks(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	ids, err := h.moderation.BlockedIDs(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"blocked_ids": ids})
}

func (h *ModerationHandler) Ban(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	var req dto.BanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	term, err := h.banTerm(req.Days)
	if err != nil {
		return respondError(c, err)
	}

	status, err := h.moderation.Ban(c.UserContext(), actor, id, req.Reason, term)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *ModerationHandler) Unban(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}

	res, err := h.moderation.Unban(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ModerationHandler) BanStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	status, err := h.moderation.IsBanned(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	status := models.ReportStatus(c.Query("status", ""))

	reports, total, err := h.reports.List(c.UserContext(), status, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PageResponse{Items: reports, Total: total, Limit: limit, Offset: offset})
}

func (h *ModerationHandler) GetReport(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid report ID")
	}
	report, err := h.reports.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ModerationHandler) ResolveReport(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid report ID")
	}
	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	in := services.ResolveInput{
		Decision:        models.ReportStatus(req.Decision),
		ReviewNote:      req.ReviewNote,
		BanReportedUser: req.BanReportedUser,
		BanReason:       req.BanReason,
		RewardReporter:  req.RewardReporter,
		RewardAmount:    req.RewardAmount,
	}
	if req.BanReportedUser {
		if in.BanTerm, err = h.banTerm(req.BanDays); err != nil {
			return respondError(c, err)
		}
	}

	report, err := h.reports.Resolve(c.UserContext(), actor, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
