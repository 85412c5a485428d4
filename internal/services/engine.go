package services

import "gorm.io/gorm"

// Engine wires every service over one database handle.
type Engine struct {
	Audit        *AuditService
	Accounts     *AccountService
	Pricing      *PricingService
	Settings     *SettingsService
	Entitlements *EntitlementService
	Ledger       *LedgerService
	Moderation   *ModerationService
	Gifts        *GiftService
	Referrals    *ReferralService
	Reports      *ReportService
	Purchases    *PurchaseService
}

func NewEngine(db *gorm.DB, opts Options, defaults SettingsDefaults) *Engine {
	audit := NewAuditService(db, opts)
	pricing := NewPricingService(db, opts, audit)
	settings := NewSettingsService(db, opts, audit, defaults)
	entitlements := NewEntitlementService(db, opts, audit, pricing)
	ledger := NewLedgerService(db, opts, audit, entitlements)
	moderation := NewModerationService(db, opts, audit)

	return &Engine{
		Audit:        audit,
		Accounts:     NewAccountService(db, opts),
		Pricing:      pricing,
		Settings:     settings,
		Entitlements: entitlements,
		Ledger:       ledger,
		Moderation:   moderation,
		Gifts:        NewGiftService(db, opts, ledger, moderation, audit),
		Referrals:    NewReferralService(db, opts, ledger, settings, audit),
		Reports:      NewReportService(db, opts, ledger, moderation, settings, audit),
		Purchases:    NewPurchaseService(db, opts, ledger, audit),
	}
}
