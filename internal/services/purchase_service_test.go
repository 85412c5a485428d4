package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findPackage(t *testing.T, env *testEnv, name string) models.CoinPackage {
	t.Helper()
	packages, err := env.engine.Pricing.CoinPackages(context.Background(), true)
	require.NoError(t, err)
	for _, p := range packages {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("package %q not seeded", name)
	return models.CoinPackage{}
}

func findPlan(t *testing.T, env *testEnv, tier models.MembershipTier, days int) models.MembershipPlan {
	t.Helper()
	plans, err := env.engine.Pricing.MembershipPlans(context.Background(), true)
	require.NoError(t, err)
	for _, p := range plans {
		if p.Tier == tier && p.DurationDays == days {
			return p
		}
	}
	t.Fatalf("plan %s/%d not seeded", tier, days)
	return models.MembershipPlan{}
}

func TestBuyCoinPackage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Buyer", 0, "12.00")
	pkg := findPackage(t, env, "Popular")

	res, err := env.engine.Purchases.BuyCoinPackage(ctx, UserActor(acc.ID, ""), acc.ID, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), res.Coins)
	assert.True(t, res.Cash.Equal(cash("2.01")), "cash = %s", res.Cash)
	assert.Nil(t, res.Membership)

	_, err = env.engine.Purchases.BuyCoinPackage(ctx, UserActor(acc.ID, ""), acc.ID, pkg.ID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(1200), env.balances(t, acc.ID).Coins)

	rec, err := env.engine.Ledger.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsConsistent)
}

func TestBuyMembershipPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Member", 0, "50.00")
	plan := findPlan(t, env, models.TierPlatinum, 30)

	res, err := env.engine.Purchases.BuyMembershipPlan(ctx, UserActor(acc.ID, ""), acc.ID, plan.ID)
	require.NoError(t, err)
	assert.True(t, res.Cash.Equal(cash("30.01")), "cash = %s", res.Cash)
	require.NotNil(t, res.Membership)
	assert.Equal(t, models.TierPlatinum, res.Membership.Tier)
	assert.WithinDuration(t, env.clock.Now().AddDate(0, 0, 30), *res.Membership.ExpiresAt, time.Second)

	var txs []models.Transaction
	require.NoError(t, env.db.Where("account_id = ? AND category = ?", acc.ID, models.TxMembershipPurchase).Find(&txs).Error)
	assert.Len(t, txs, 1)
}

func TestBuy_UnavailableProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Buyer", 0, "100.00")
	plan := findPlan(t, env, models.TierGold, 30)
	pkg := findPackage(t, env, "Starter")

	off := false
	_, err := env.engine.Pricing.UpdateMembershipPlan(ctx, env.admin, plan.ID, MembershipPlanPatch{Enabled: &off})
	require.NoError(t, err)
	_, err = env.engine.Pricing.UpdateCoinPackage(ctx, env.admin, pkg.ID, CoinPackagePatch{Enabled: &off})
	require.NoError(t, err)

	_, err = env.engine.Purchases.BuyMembershipPlan(ctx, UserActor(acc.ID, ""), acc.ID, plan.ID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	_, err = env.engine.Purchases.BuyCoinPackage(ctx, UserActor(acc.ID, ""), acc.ID, pkg.ID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	_, err = env.engine.Purchases.BuyCoinPackage(ctx, UserActor(acc.ID, ""), acc.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPackageNotFound)

	enabled, err := env.engine.Pricing.CoinPackages(ctx, false)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
	assert.True(t, env.balances(t, acc.ID).Cash.Equal(cash("100.00")))
}

func TestCapturePayment_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Payer", 0, "")
	in := PaymentCaptureInput{ExternalID: "pi_123", AccountID: acc.ID, Amount: cash("25.00"), Provider: "stripe"}

	first, err := env.engine.Purchases.CapturePayment(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.True(t, first.Cash.Equal(cash("25.00")))

	second, err := env.engine.Purchases.CapturePayment(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.True(t, env.balances(t, acc.ID).Cash.Equal(cash("25.00")))
	assert.Equal(t, int64(1), env.auditCount(t, models.AuditPaymentCaptured, acc.ID))

	_, err = env.engine.Purchases.CapturePayment(ctx, PaymentCaptureInput{AccountID: acc.ID, Amount: cash("1.00")})
	assert.ErrorIs(t, err, ErrInvalidPayment)
	_, err = env.engine.Purchases.CapturePayment(ctx, PaymentCaptureInput{ExternalID: "pi_404", AccountID: uuid.New(), Amount: cash("1.00")})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPricing_GiftTierPatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	negative := int64(-1)
	_, err := env.engine.Pricing.UpdateGiftTier(ctx, env.admin, models.GiftGold, GiftTierPatch{PriceCoins: &negative})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.engine.Pricing.UpdateGiftTier(ctx, env.admin, models.GiftGold, GiftTierPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
	_, err = env.engine.Pricing.UpdateGiftTier(ctx, env.admin, "OPAL", GiftTierPatch{PriceCoins: &negative})
	assert.Error(t, err)

	price := int64(650)
	updated, err := env.engine.Pricing.UpdateGiftTier(ctx, env.admin, models.GiftGold, GiftTierPatch{PriceCoins: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(650), updated.PriceCoins)

	var n int64
	require.NoError(t, env.db.Model(&models.AuditLogEntry{}).Where("action = ?", models.AuditGiftTierUpdated).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	tiers, err := env.engine.Pricing.GiftTiers(ctx, false)
	require.NoError(t, err)
	require.Len(t, tiers, 5)
	assert.Equal(t, models.GiftSilver, tiers[0].Tier)
}

func TestSettings_EconomyBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Settings.Set(ctx, env.admin, SettingReportRewardMin, "20000", "")
	assert.ErrorIs(t, err, ErrInvalidSetting)
	_, err = env.engine.Settings.Set(ctx, env.admin, SettingReportRewardMax, "50", "")
	assert.ErrorIs(t, err, ErrInvalidSetting)
	_, err = env.engine.Settings.Set(ctx, env.admin, SettingReferralRewardCoins, "lots", "")
	assert.ErrorIs(t, err, ErrInvalidSetting)

	saved, err := env.engine.Settings.Set(ctx, env.admin, SettingReportRewardMin, "250", "string")
	require.NoError(t, err)
	assert.Equal(t, "int", saved.Type)

	all, err := env.engine.Settings.All(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 250, all[SettingReportRewardMin])
	assert.EqualValues(t, 10000, all[SettingReportRewardMax])

	require.NoError(t, env.engine.Settings.Delete(ctx, env.admin, SettingReportRewardMin))
	assert.ErrorIs(t, env.engine.Settings.Delete(ctx, env.admin, SettingReportRewardMin), ErrSettingNotFound)
}
