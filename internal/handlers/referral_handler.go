package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReferralHandler struct {
	referrals *services.ReferralService
}

func NewReferralHandler(referrals *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

func (h *ReferralHandler) Validate(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ReferralCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	summary, err := h.referrals.ValidateCode(c.UserContext(), actor.ID, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// Apply records the caller as referred by the code's owner. The reward is
// paid later, when the profile-completed event arrives.
func (h *ReferralHandler) Apply(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ReferralCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	grant, err := h.referrals.ApplyCode(c.UserContext(), actor.ID, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(grant)
}
