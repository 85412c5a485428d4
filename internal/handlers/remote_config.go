package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RemoteConfigHandler struct {
	settings *services.SettingsService
}

func NewRemoteConfigHandler(settings *services.SettingsService) *RemoteConfigHandler {
	return &RemoteConfigHandler{settings: settings}
}

// GetConfig returns every setting as a typed key/value map, defaults included.
func (h *RemoteConfigHandler) GetConfig(c *fiber.Ctx) error {
	result, err := h.settings.All(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// SetConfigKey sets or updates a config key (admin only)
func (h *RemoteConfigHandler) SetConfigKey(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "Key parameter is required")
	}

	var payload dto.SettingRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if payload.Value == "" {
		return badRequest(c, "Value is required")
	}

	config, err := h.settings.Set(c.UserContext(), actor, key, payload.Value, payload.Type)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config updated successfully",
		"config": fiber.Map{
			"key":   config.Key,
			"value": config.Value,
			"type":  config.Type,
		},
	})
}

// DeleteConfigKey deletes a config key (admin only)
func (h *RemoteConfigHandler) DeleteConfigKey(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "Key parameter is required")
	}

	if err := h.settings.Delete(c.UserContext(), actor, key); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config deleted successfully",
	})
}
