package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PurchaseHandler struct {
	purchases *services.PurchaseService
}

func NewPurchaseHandler(purchases *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

func (h *PurchaseHandler) BuyPlan(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.BuyPlanRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == uuid.Nil {
		return badRequest(c, "plan_id is required")
	}
	res, err := h.purchases.BuyMembershipPlan(c.UserContext(), actor, actor.ID, req.PlanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *PurchaseHandler) BuyPackage(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.BuyPackageRequest
	if err := c.BodyParser(&req); err != nil || req.PackageID == uuid.Nil {
		return badRequest(c, "package_id is required")
	}
	res, err := h.purchases.BuyCoinPackage(c.UserContext(), actor, actor.ID, req.PackageID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
