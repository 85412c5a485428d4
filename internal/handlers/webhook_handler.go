package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebhookHandler accepts server-to-server calls: captured payments from the
// payment integration and lifecycle events from the profile service.
type WebhookHandler struct {
	purchases    *services.PurchaseService
	referrals    *services.ReferralService
	accounts     *services.AccountService
	paymentsAuth string
	eventsAuth   string
}

func NewWebhookHandler(engine *services.Engine, paymentsAuth, eventsAuth string) *WebhookHandler {
	return &WebhookHandler{
		purchases:    engine.Purchases,
		referrals:    engine.Referrals,
		accounts:     engine.Accounts,
		paymentsAuth: paymentsAuth,
		eventsAuth:   eventsAuth,
	}
}

func authorized(c *fiber.Ctx, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Get(fiber.HeaderAuthorization)), []byte(expected)) == 1
}

// HandlePayment credits a captured payment to the account's cash balance.
// Redelivered events are acknowledged without a second credit.
func (h *WebhookHandler) HandlePayment(c *fiber.Ctx) error {
	if h.paymentsAuth == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}
	if !authorized(c, h.paymentsAuth) {
		return unauthorized(c)
	}

	var event dto.PaymentCapturedEvent
	if err := c.BodyParser(&event); err != nil {
		return badRequest(c, "Invalid webhook payload")
	}

	res, err := h.purchases.CapturePayment(c.UserContext(), services.PaymentCaptureInput{
		ExternalID: event.EventID,
		AccountID:  event.AccountID,
		Amount:     event.Amount,
		Provider:   event.Provider,
	})
	if err != nil {
		slog.Error("payment webhook failed", "event_id", event.EventID, "account_id", event.AccountID, "error", err)
		return respondError(c, err)
	}

	slog.Info("payment webhook processed", "event_id", event.EventID, "account_id", event.AccountID, "duplicate", res.Duplicate)
	return c.JSON(fiber.Map{"received": true, "duplicate": res.Duplicate})
}

// ProfileCompleted pays the pending referral reward, if any, for the account.
func (h *WebhookHandler) ProfileCompleted(c *fiber.Ctx) error {
	if !authorized(c, h.eventsAuth) {
		return unauthorized(c)
	}
	var event dto.ProfileCompletedEvent
	if err := c.BodyParser(&event); err != nil || event.AccountID == uuid.Nil {
		return badRequest(c, "account_id is required")
	}

	res, err := h.referrals.RewardOnCompletion(c.UserContext(), event.AccountID)
	if err != nil {
		slog.Error("profile completion failed", "account_id", event.AccountID, "error", err)
		return respondError(c, err)
	}
	return c.JSON(res)
}

// AccountSynced mirrors an account created or edited by the profile service.
func (h *WebhookHandler) AccountSynced(c *fiber.Ctx) error {
	if !authorized(c, h.eventsAuth) {
		return unauthorized(c)
	}
	var event dto.AccountSyncedEvent
	if err := c.BodyParser(&event); err != nil || event.AccountID == uuid.Nil {
		return badRequest(c, "account_id is required")
	}

	acc, err := h.accounts.Sync(c.UserContext(), services.AccountSync{
		ID:          event.AccountID,
		DisplayName: event.DisplayName,
		Email:       event.Email,
		Phone:       event.Phone,
		Role:        event.Role,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(acc)
}
