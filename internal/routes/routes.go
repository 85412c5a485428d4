package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(app *fiber.App, cfg *config.Config, engine *services.Engine, ping func() error) {
	healthHandler := handlers.NewHealthHandler(ping)
	accountHandler := handlers.NewAccountHandler(engine)
	giftHandler := handlers.NewGiftHandler(engine.Gifts)
	referralHandler := handlers.NewReferralHandler(engine.Referrals)
	purchaseHandler := handlers.NewPurchaseHandler(engine.Purchases)
	moderationHandler := handlers.NewModerationHandler(engine.Moderation, engine.Reports, nil)
	catalogHandler := handlers.NewCatalogHandler(engine.Pricing)
	configHandler := handlers.NewRemoteConfigHandler(engine.Settings)
	auditHandler := handlers.NewAuditHandler(engine.Audit)
	webhookHandler := handlers.NewWebhookHandler(engine, cfg.PaymentsWebhookSecret, cfg.EventsSecret)

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)
	api.Get("/config", configHandler.GetConfig)

	// Catalog (public, enabled items only)
	catalog := api.Group("/catalog")
	catalog.Get("/gift-tiers", catalogHandler.GiftTiers)
	catalog.Get("/plans", catalogHandler.MembershipPlans)
	catalog.Get("/packages", catalogHandler.CoinPackages)
	catalog.Get("/tier-policies", catalogHandler.TierPolicies)

	jwt := middleware.JWTProtected(cfg)

	me := api.Group("/me", jwt)
	me.Get("/balances", accountHandler.MyBalances)
	me.Get("/transactions", accountHandler.MyTransactions)
	me.Get("/membership", accountHandler.MyMembership)
	me.Get("/ban", accountHandler.MyBanStatus)
	me.Get("/blocks", moderationHandler.ListBlocks)

	// Gift sends spend coins: 20 req/min per IP on top of the global limit
	gifts := api.Group("/gifts", jwt)
	gifts.Post("/", limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), giftHandler.Send)
	gifts.Get("/received", giftHandler.Received)
	gifts.Get("/sent", giftHandler.Sent)
	gifts.Get("/:id", giftHandler.Get)
	gifts.Post("/:id/view", giftHandler.MarkViewed)
	gifts.Post("/:id/decision", giftHandler.Decide)

	referrals := api.Group("/referrals", jwt)
	referrals.Post("/validate", referralHandler.Validate)
	referrals.Post("/apply", referralHandler.Apply)

	purchases := api.Group("/purchases", jwt)
	purchases.Post("/plans", purchaseHandler.BuyPlan)
	purchases.Post("/packages", purchaseHandler.BuyPackage)

	// Moderation: user endpoints (protected)
	api.Post("/reports", jwt, moderationHandler.CreateReport)
	api.Post("/blocks", jwt, moderationHandler.BlockUser)
	api.Delete("/blocks/:id", jwt, moderationHandler.UnblockUser)

	// Admin panel: JWT with admin role, or the operator token
	admin := api.Group("/admin", middleware.JWTUnlessAdminToken(cfg), middleware.AdminRequired(engine.Accounts, cfg))

	accounts := admin.Group("/accounts/:id")
	accounts.Get("/", accountHandler.GetAccount)
	accounts.Get("/balances", accountHandler.Balances)
	accounts.Get("/transactions", accountHandler.Transactions)
	accounts.Get("/reconcile", accountHandler.Reconcile)
	accounts.Post("/credit", accountHandler.Credit)
	accounts.Post("/debit", accountHandler.Debit)
	accounts.Post("/membership", accountHandler.GrantMembership)
	accounts.Put("/tier", accountHandler.ChangeTier)
	accounts.Get("/ban", moderationHandler.BanStatus)
	accounts.Post("/ban", moderationHandler.Ban)
	accounts.Post("/unban", moderationHandler.Unban)

	admin.Get("/reports", moderationHandler.ListReports)
	admin.Get("/reports/:id", moderationHandler.GetReport)
	admin.Post("/reports/:id/resolve", moderationHandler.ResolveReport)

	admin.Get("/catalog/gift-tiers", catalogHandler.GiftTiers)
	admin.Patch("/catalog/gift-tiers/:tier", catalogHandler.UpdateGiftTier)
	admin.Get("/catalog/plans", catalogHandler.MembershipPlans)
	admin.Post("/catalog/plans", catalogHandler.CreatePlan)
	admin.Patch("/catalog/plans/:id", catalogHandler.UpdatePlan)
	admin.Get("/catalog/packages", catalogHandler.CoinPackages)
	admin.Post("/catalog/packages", catalogHandler.CreatePackage)
	admin.Patch("/catalog/packages/:id", catalogHandler.UpdatePackage)
	admin.Patch("/catalog/tier-policies/:tier", catalogHandler.UpdateTierPolicy)

	admin.Put("/config/:key", configHandler.SetConfigKey)
	admin.Delete("/config/:key", configHandler.DeleteConfigKey)

	admin.Get("/audit", auditHandler.Query)

	// Collaborator callbacks: shared-secret auth (no JWT)
	webhooks := api.Group("/webhooks")
	webhooks.Post("/payments", webhookHandler.HandlePayment)

	events := api.Group("/internal/events")
	events.Post("/profile-completed", webhookHandler.ProfileCompleted)
	events.Post("/account-synced", webhookHandler.AccountSynced)
}
