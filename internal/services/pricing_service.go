package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PricingService is the admin-editable catalog: gift tiers, membership plans,
// coin packages and tier policies.
type PricingService struct {
	store
	audit *AuditService
}

func NewPricingService(db *gorm.DB, opts Options, audit *AuditService) *PricingService {
	return &PricingService{store: newStore(db, opts), audit: audit}
}

var defaultGiftTiers = []models.GiftTierConfig{
	{Tier: models.GiftSilver, Rank: 1, DisplayName: "Silver", Icon: "silver", Description: "A small token of interest.", PriceCoins: 100, Enabled: true},
	{Tier: models.GiftGold, Rank: 2, DisplayName: "Gold", Icon: "gold", Description: "Stand out in their inbox.", PriceCoins: 500, Enabled: true},
	{Tier: models.GiftEmerald, Rank: 3, DisplayName: "Emerald", Icon: "emerald", Description: "A rare gesture.", PriceCoins: 1000, Enabled: true},
	{Tier: models.GiftDiamond, Rank: 4, DisplayName: "Diamond", Icon: "diamond", Description: "Shares your contact details when accepted.", PriceCoins: 1500, Enabled: true, SharesContactInfo: true},
	{Tier: models.GiftRuby, Rank: 5, DisplayName: "Ruby", Icon: "ruby", Description: "Shares your contact details and a personal message when accepted.", PriceCoins: 3000, Enabled: true, SharesContactInfo: true, CanSendMessage: true},
}

var defaultTierPolicies = map[models.MembershipTier]models.TierPolicy{
	models.TierStandard: {Tier: models.TierStandard, PhotoSlots: 3},
	models.TierGold:     {Tier: models.TierGold, PhotoSlots: 6, OrientationFilter: true},
	models.TierPlatinum: {Tier: models.TierPlatinum, PhotoSlots: 10, OrientationFilter: true, PriorityDisplay: true},
}

func defaultMembershipPlans() []models.MembershipPlan {
	return []models.MembershipPlan{
		{Tier: models.TierGold, DurationDays: 30, PriceCash: decimal.RequireFromString("9.99"), Enabled: true},
		{Tier: models.TierGold, DurationDays: 90, PriceCash: decimal.RequireFromString("24.99"), Enabled: true},
		{Tier: models.TierPlatinum, DurationDays: 30, PriceCash: decimal.RequireFromString("19.99"), Enabled: true},
		{Tier: models.TierPlatinum, DurationDays: 90, PriceCash: decimal.RequireFromString("49.99"), Enabled: true},
	}
}

func defaultCoinPackages() []models.CoinPackage {
	return []models.CoinPackage{
		{Name: "Starter", Coins: 500, PriceCash: decimal.RequireFromString("4.99"), Enabled: true},
		{Name: "Popular", Coins: 1200, PriceCash: decimal.RequireFromString("9.99"), Enabled: true},
		{Name: "Best Value", Coins: 3500, PriceCash: decimal.RequireFromString("24.99"), Enabled: true},
	}
}

// SeedDefaults inserts the default catalog rows that are missing. Existing
// rows keep their admin-edited values.
func (s *PricingService) SeedDefaults(ctx context.Context) error {
	return s.transact(ctx, func(tx *gorm.DB) error {
		tiers := make([]models.GiftTierConfig, len(defaultGiftTiers))
		copy(tiers, defaultGiftTiers)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tiers).Error; err != nil {
			return err
		}
		policies := make([]models.TierPolicy, 0, len(defaultTierPolicies))
		for _, tier := range []models.MembershipTier{models.TierStandard, models.TierGold, models.TierPlatinum} {
			policies = append(policies, defaultTierPolicies[tier])
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&policies).Error; err != nil {
			return err
		}
		plans := defaultMembershipPlans()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&plans).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.CoinPackage{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			packages := defaultCoinPackages()
			if err := tx.Create(&packages).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Gift tiers

func (s *PricingService) GiftTiers(ctx context.Context, includeDisabled bool) ([]models.GiftTierConfig, error) {
	var tiers []models.GiftTierConfig
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Order("rank ASC")
		if !includeDisabled {
			query = query.Where("enabled = ?", true)
		}
		return query.Find(&tiers).Error
	})
	return tiers, err
}

func (s *PricingService) GiftTier(ctx context.Context, tier models.GiftTier) (*models.GiftTierConfig, error) {
	var cfg *models.GiftTierConfig
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		cfg, err = giftTierConfig(db, tier)
		return err
	})
	return cfg, err
}

func giftTierConfig(tx *gorm.DB, tier models.GiftTier) (*models.GiftTierConfig, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	var cfg models.GiftTierConfig
	if err := tx.First(&cfg, "tier = ?", tier).Error; err != nil {
		return nil, notFound(err, ErrInvalidTier)
	}
	return &cfg, nil
}

type GiftTierPatch struct {
	DisplayName       *string
	Icon              *string
	Description       *string
	PriceCoins        *int64
	Enabled           *bool
	SharesContactInfo *bool
	CanSendMessage    *bool
}

func (p GiftTierPatch) updates() (map[string]interface{}, error) {
	u := map[string]interface{}{}
	if p.DisplayName != nil {
		name := strings.TrimSpace(*p.DisplayName)
		if name == "" || len(name) > 100 {
			return nil, ErrInvalidPatch
		}
		u["display_name"] = name
	}
	if p.Icon != nil {
		if len(*p.Icon) > 255 {
			return nil, ErrInvalidPatch
		}
		u["icon"] = *p.Icon
	}
	if p.Description != nil {
		if len(*p.Description) > 500 {
			return nil, ErrInvalidPatch
		}
		u["description"] = *p.Description
	}
	if p.PriceCoins != nil {
		if err := validateAmount(models.CurrencyCoin, decimal.NewFromInt(*p.PriceCoins)); err != nil {
			return nil, err
		}
		u["price_coins"] = *p.PriceCoins
	}
	if p.Enabled != nil {
		u["enabled"] = *p.Enabled
	}
	if p.SharesContactInfo != nil {
		u["shares_contact_info"] = *p.SharesContactInfo
	}
	if p.CanSendMessage != nil {
		u["can_send_message"] = *p.CanSendMessage
	}
	if len(u) == 0 {
		return nil, ErrEmptyPatch
	}
	return u, nil
}

// UpdateGiftTier applies patch to a tier. Gifts already sent keep the price
// and reveal flags they were bought with.
func (s *PricingService) UpdateGiftTier(ctx context.Context, actor Actor, tier models.GiftTier, patch GiftTierPatch) (*models.GiftTierConfig, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}
	var updated models.GiftTierConfig
	err = s.transact(ctx, func(tx *gorm.DB) error {
		old, err := giftTierConfig(tx, tier)
		if err != nil {
			return err
		}
		updates["updated_at"] = s.now()
		if err := tx.Model(&models.GiftTierConfig{}).Where("tier = ?", tier).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&updated, "tier = ?", tier).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditGiftTierUpdated,
			Description: "gift tier " + string(tier) + " updated",
			Old:         old,
			New:         updated,
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("gift tier updated", "tier", tier)
	return &updated, nil
}

// Membership plans

func (s *PricingService) MembershipPlans(ctx context.Context, includeDisabled bool) ([]models.MembershipPlan, error) {
	var plans []models.MembershipPlan
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Order("tier ASC, duration_days ASC")
		if !includeDisabled {
			query = query.Where("enabled = ?", true)
		}
		return query.Find(&plans).Error
	})
	return plans, err
}

func membershipPlan(tx *gorm.DB, id uuid.UUID) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	if err := tx.First(&plan, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrPlanNotFound)
	}
	return &plan, nil
}

type NewMembershipPlan struct {
	Tier         models.MembershipTier
	DurationDays int
	PriceCash    decimal.Decimal
}

func (s *PricingService) CreateMembershipPlan(ctx context.Context, actor Actor, in NewMembershipPlan) (*models.MembershipPlan, error) {
	if !in.Tier.Valid() || in.Tier == models.TierStandard {
		return nil, ErrInvalidTier
	}
	if in.DurationDays <= 0 {
		return nil, ErrInvalidDuration
	}
	if err := validateAmount(models.CurrencyCash, in.PriceCash); err != nil {
		return nil, err
	}
	plan := models.MembershipPlan{Tier: in.Tier, DurationDays: in.DurationDays, PriceCash: in.PriceCash, Enabled: true}
	err := s.transact(ctx, func(tx *gorm.DB) error {
		plan.ID = uuid.Nil
		if err := tx.Create(&plan).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditPlanUpdated,
			Description: "membership plan created",
			New:         plan,
		})
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

type MembershipPlanPatch struct {
	PriceCash *decimal.Decimal
	Enabled   *bool
}

func (s *PricingService) UpdateMembershipPlan(ctx context.Context, actor Actor, id uuid.UUID, patch MembershipPlanPatch) (*models.MembershipPlan, error) {
	updates := map[string]interface{}{}
	if patch.PriceCash != nil {
		if err := validateAmount(models.CurrencyCash, *patch.PriceCash); err != nil {
			return nil, err
		}
		updates["price_cash"] = patch.PriceCash.StringFixed(2)
	}
	if patch.Enabled != nil {
		updates["enabled"] = *patch.Enabled
	}
	if len(updates) == 0 {
		return nil, ErrEmptyPatch
	}

	var updated *models.MembershipPlan
	err := s.transact(ctx, func(tx *gorm.DB) error {
		old, err := membershipPlan(tx, id)
		if err != nil {
			return err
		}
		updates["updated_at"] = s.now()
		if err := tx.Model(&models.MembershipPlan{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if updated, err = membershipPlan(tx, id); err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditPlanUpdated,
			Description: "membership plan updated",
			Old:         old,
			New:         updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Coin packages

func (s *PricingService) CoinPackages(ctx context.Context, includeDisabled bool) ([]models.CoinPackage, error) {
	var packages []models.CoinPackage
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Order("coins ASC")
		if !includeDisabled {
			query = query.Where("enabled = ?", true)
		}
		return query.Find(&packages).Error
	})
	return packages, err
}

func coinPackage(tx *gorm.DB, id uuid.UUID) (*models.CoinPackage, error) {
	var pkg models.CoinPackage
	if err := tx.First(&pkg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrPackageNotFound)
	}
	return &pkg, nil
}

type NewCoinPackage struct {
	Name      string
	Coins     int64
	PriceCash decimal.Decimal
}

func (s *PricingService) CreateCoinPackage(ctx context.Context, actor Actor, in NewCoinPackage) (*models.CoinPackage, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidPatch
	}
	if err := validateAmount(models.CurrencyCoin, decimal.NewFromInt(in.Coins)); err != nil {
		return nil, err
	}
	if err := validateAmount(models.CurrencyCash, in.PriceCash); err != nil {
		return nil, err
	}
	pkg := models.CoinPackage{Name: name, Coins: in.Coins, PriceCash: in.PriceCash, Enabled: true}
	err := s.transact(ctx, func(tx *gorm.DB) error {
		pkg.ID = uuid.Nil
		if err := tx.Create(&pkg).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditPackageUpdated,
			Description: "coin package created",
			New:         pkg,
		})
	})
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

type CoinPackagePatch struct {
	Name      *string
	Coins     *int64
	PriceCash *decimal.Decimal
	Enabled   *bool
}

func (p CoinPackagePatch) updates() (map[string]interface{}, error) {
	u := map[string]interface{}{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || len(name) > 100 {
			return nil, ErrInvalidPatch
		}
		u["name"] = name
	}
	if p.Coins != nil {
		if err := validateAmount(models.CurrencyCoin, decimal.NewFromInt(*p.Coins)); err != nil {
			return nil, err
		}
		u["coins"] = *p.Coins
	}
	if p.PriceCash != nil {
		if err := validateAmount(models.CurrencyCash, *p.PriceCash); err != nil {
			return nil, err
		}
		u["price_cash"] = p.PriceCash.StringFixed(2)
	}
	if p.Enabled != nil {
		u["enabled"] = *p.Enabled
	}
	if len(u) == 0 {
		return nil, ErrEmptyPatch
	}
	return u, nil
}

func (s *PricingService) UpdateCoinPackage(ctx context.Context, actor Actor, id uuid.UUID, patch CoinPackagePatch) (*models.CoinPackage, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}
	var updated *models.CoinPackage
	err = s.transact(ctx, func(tx *gorm.DB) error {
		old, err := coinPackage(tx, id)
		if err != nil {
			return err
		}
		updates["updated_at"] = s.now()
		if err := tx.Model(&models.CoinPackage{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if updated, err = coinPackage(tx, id); err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditPackageUpdated,
			Description: "coin package updated",
			Old:         old,
			New:         updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Tier policies

func (s *PricingService) TierPolicies(ctx context.Context) ([]models.TierPolicy, error) {
	policies := make([]models.TierPolicy, 0, len(defaultTierPolicies))
	for _, tier := range []models.MembershipTier{models.TierStandard, models.TierGold, models.TierPlatinum} {
		p, err := s.TierPolicy(ctx, tier)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, nil
}

// TierPolicy returns the stored policy for tier or the built-in default.
func (s *PricingService) TierPolicy(ctx context.Context, tier models.MembershipTier) (*models.TierPolicy, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	var policy models.TierPolicy
	found := true
	err := s.read(ctx, func(db *gorm.DB) error {
		err := db.First(&policy, "tier = ?", tier).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		p := defaultTierPolicies[tier]
		return &p, nil
	}
	return &policy, nil
}

type TierPolicyPatch struct {
	PhotoSlots        *int
	OrientationFilter *bool
	PriorityDisplay   *bool
}

func (s *PricingService) UpdateTierPolicy(ctx context.Context, actor Actor, tier models.MembershipTier, patch TierPolicyPatch) (*models.TierPolicy, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	if patch.PhotoSlots == nil && patch.OrientationFilter == nil && patch.PriorityDisplay == nil {
		return nil, ErrEmptyPatch
	}
	if patch.PhotoSlots != nil && (*patch.PhotoSlots < 1 || *patch.PhotoSlots > 50) {
		return nil, ErrInvalidPatch
	}

	var updated models.TierPolicy
	err := s.transact(ctx, func(tx *gorm.DB) error {
		current := defaultTierPolicies[tier]
		err := tx.First(&current, "tier = ?", tier).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		old := current
		updated = current
		if patch.PhotoSlots != nil {
			updated.PhotoSlots = *patch.PhotoSlots
		}
		if patch.OrientationFilter != nil {
			updated.OrientationFilter = *patch.OrientationFilter
		}
		if patch.PriorityDisplay != nil {
			updated.PriorityDisplay = *patch.PriorityDisplay
		}
		updated.UpdatedAt = s.now()
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditTierPolicyUpdated,
			Description: "tier policy " + string(tier) + " updated",
			Old:         old,
			New:         updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
