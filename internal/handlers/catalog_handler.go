package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/identity"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves gift tiers, membership plans, coin packages and tier
// policies. Public routes list enabled items only; admin routes see all.
type CatalogHandler struct {
	pricing *services.PricingService
}

func NewCatalogHandler(pricing *services.PricingService) *CatalogHandler {
	return &CatalogHandler{pricing: pricing}
}

func includeDisabled(c *fiber.Ctx) bool {
	return c.Locals(identity.AdminIDKey) != nil && c.QueryBool("all", true)
}

func (h *CatalogHandler) GiftTiers(c *fiber.Ctx) error {
	tiers, err := h.pricing.GiftTiers(c.UserContext(), includeDisabled(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"gift_tiers": tiers})
}

func (h *CatalogHandler) MembershipPlans(c *fiber.Ctx) error {
	plans, err := h.pricing.MembershipPlans(c.UserContext(), includeDisabled(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (h *CatalogHandler) CoinPackages(c *fiber.Ctx) error {
	packages, err := h.pricing.CoinPackages(c.UserContext(), includeDisabled(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"packages": packages})
}

func (h *CatalogHandler) TierPolicies(c *fiber.Ctx) error {
	policies, err := h.pricing.TierPolicies(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tier_policies": policies})
}

func (h *CatalogHandler) UpdateGiftTier(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.GiftTierPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tier, err := h.pricing.UpdateGiftTier(c.UserContext(), actor, models.GiftTier(c.Params("tier")), services.GiftTierPatch{
		DisplayName:       req.DisplayName,
		Icon:              req.Icon,
		Description:       req.Description,
		PriceCoins:        req.PriceCoins,
		Enabled:           req.Enabled,
		SharesContactInfo: req.SharesContactInfo,
		CanSendMessage:    req.CanSendMessage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tier)
}

func (h *CatalogHandler) CreatePlan(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	plan, err := h.pricing.CreateMembershipPlan(c.UserContext(), actor, services.NewMembershipPlan{
		Tier:         models.MembershipTier(req.Tier),
		DurationDays: req.DurationDays,
		PriceCash:    req.PriceCash,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (h *CatalogHandler) UpdatePlan(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid plan ID")
	}
	var req dto.PlanPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	plan, err := h.pricing.UpdateMembershipPlan(c.UserContext(), actor, id, services.MembershipPlanPatch{
		PriceCash: req.PriceCash,
		Enabled:   req.Enabled,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

func (h *CatalogHandler) CreatePackage(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreatePackageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	pkg, err := h.pricing.CreateCoinPackage(c.UserContext(), actor, services.NewCoinPackage{
		Name:      req.Name,
		Coins:     req.Coins,
		PriceCash: req.PriceCash,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

func (h *CatalogHandler) UpdatePackage(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid package ID")
	}
	var req dto.PackagePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	pkg, err := h.pricing.UpdateCoinPackage(c.UserContext(), actor, id, services.CoinPackagePatch{
		Name:      req.Name,
		Coins:     req.Coins,
		PriceCash: req.PriceCash,
		Enabled:   req.Enabled,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pkg)
}

func (h *CatalogHandler) UpdateTierPolicy(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.TierPolicyPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	policy, err := h.pricing.UpdateTierPolicy(c.UserContext(), actor, models.MembershipTier(c.Params("tier")), services.TierPolicyPatch{
		PhotoSlots:        req.PhotoSlots,
		OrientationFilter: req.OrientationFilter,
		PriorityDisplay:   req.PriorityDisplay,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(policy)
}
