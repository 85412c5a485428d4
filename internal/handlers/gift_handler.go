package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
)

type GiftHandler struct {
	gifts *services.GiftService
}

func NewGiftHandler(gifts *services.GiftService) *GiftHandler {
	return &GiftHandler{gifts: gifts}
}

func (h *GiftHandler) Send(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.SendGiftRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	gift, err := h.gifts.Send(c.UserContext(), actor, services.SendGiftInput{
		SenderID:   actor.ID,
		ReceiverID: req.ReceiverID,
		Tier:       models.GiftTier(req.Tier),
		Message:    req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gift)
}

func (h *GiftHandler) Received(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	limit, offset := pagination(c)
	gifts, err := h.gifts.Received(c.UserContext(), actor.ID, services.GiftFilter{
		Status: models.GiftStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"gifts": gifts})
}

func (h *GiftHandler) Sent(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	limit, offset := pagination(c)
	gifts, err := h.gifts.Sent(c.UserContext(), actor.ID, services.GiftFilter{
		Status: models.GiftStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"gifts": gifts})
}

func (h *GiftHandler) Get(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid gift ID")
	}
	gift, err := h.gifts.Get(c.UserContext(), id, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(gift)
}

func (h *GiftHandler) MarkViewed(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid gift ID")
	}
	gift, err := h.gifts.MarkViewed(c.UserContext(), id, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(gift)
}

func (h *GiftHandler) Decide(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid gift ID")
	}
	var req dto.DecideGiftRequest
	if err := c.BodyParser(&req); err != nil || req.Accept == nil {
		return badRequest(c, "accept must be true or false")
	}

	gift, err := h.gifts.Decide(c.UserContext(), id, actor.ID, *req.Accept)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(gift)
}
