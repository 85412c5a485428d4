package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func optionalUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Query lists audit entries filtered by actor, target, action and time range.
func (h *AuditHandler) Query(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := services.AuditFilter{Action: c.Query("action"), Limit: limit, Offset: offset}

	var err error
	if filter.ActorID, err = optionalUUID(c, "actor_id"); err != nil {
		return badRequest(c, "Invalid actor_id")
	}
	if filter.TargetID, err = optionalUUID(c, "target_id"); err != nil {
		return badRequest(c, "Invalid target_id")
	}
	if filter.From, err = optionalTime(c, "from"); err != nil {
		return badRequest(c, "from must be an RFC3339 timestamp")
	}
	if filter.To, err = optionalTime(c, "to"); err != nil {
		return badRequest(c, "to must be an RFC3339 timestamp")
	}

	entries, total, err := h.audit.Query(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PageResponse{Items: entries, Total: total, Limit: limit, Offset: offset})
}
