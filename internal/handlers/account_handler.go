package handlers

import (
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AccountHandler struct {
	accounts     *services.AccountService
	ledger       *services.LedgerService
	entitlements *services.EntitlementService
	moderation   *services.ModerationService
}

func NewAccountHandler(engine *services.Engine) *AccountHandler {
	return &AccountHandler{
		accounts:     engine.Accounts,
		ledger:       engine.Ledger,
		entitlements: engine.Entitlements,
		moderation:   engine.Moderation,
	}
}

func (h *AccountHandler) MyBalances(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	return h.balances(c, actor.ID)
}

func (h *AccountHandler) MyTransactions(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	return h.transactions(c, actor.ID)
}

func (h *AccountHandler) MyMembership(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	state, err := h.entitlements.Membership(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

func (h *AccountHandler) MyBanStatus(c *fiber.Ctx) error {
	actor, ok := userActor(c)
	if !ok {
		return unauthorized(c)
	}
	status, err := h.moderation.IsBanned(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *AccountHandler) balances(c *fiber.Ctx, id uuid.UUID) error {
	b, err := h.ledger.Balances(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{AccountID: b.AccountID, Coins: b.Coins, Cash: b.Cash})
}

func (h *AccountHandler) transactions(c *fiber.Ctx, id uuid.UUID) error {
	limit, offset := pagination(c)
	txs, total, err := h.ledger.Transactions(c.UserContext(), id, services.TransactionFilter{
		Currency: models.Currency(c.Query("currency")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PageResponse{Items: txs, Total: total, Limit: limit, Offset: offset})
}

// GetAccount returns an account with its effective membership and ban state.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	ctx := c.UserContext()
	acc, err := h.accounts.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	membership, err := h.entitlements.Membership(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	ban, err := h.moderation.IsBanned(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"account":    acc,
		"membership": membership,
		"ban":        ban,
	})
}

func (h *AccountHandler) Balances(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	return h.balances(c, id)
}

func (h *AccountHandler) Transactions(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	return h.transactions(c, id)
}

func (h *AccountHandler) Credit(c *fiber.Ctx) error {
	return h.adjust(c, false)
}

func (h *AccountHandler) Debit(c *fiber.Ctx) error {
	return h.adjust(c, true)
}

func (h *AccountHandler) adjust(c *fiber.Ctx, debit bool) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	var req dto.BalanceAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Category == "" {
		req.Category = models.TxAdminAdjustment
	}

	m := services.Movement{
		AccountID:   id,
		Currency:    models.Currency(req.Currency),
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	var tx *models.Transaction
	if debit {
		tx, err = h.ledger.Debit(c.UserContext(), actor, m)
	} else {
		tx, err = h.ledger.Credit(c.UserContext(), actor, m)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

func (h *AccountHandler) GrantMembership(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	var req dto.GrantMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	state, err := h.entitlements.GrantMembership(c.UserContext(), actor, id, models.MembershipTier(req.Tier), req.DurationDays)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

func (h *AccountHandler) ChangeTier(c *fiber.Ctx) error {
	actor, ok := adminActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	var req dto.ChangeTierRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	state, err := h.entitlements.ChangeTier(c.UserContext(), actor, id, models.MembershipTier(req.Tier), req.ExpiresAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

func (h *AccountHandler) Reconcile(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid account ID")
	}
	rec, err := h.ledger.Reconcile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}
