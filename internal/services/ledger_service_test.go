package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_BalanceMatchesTransactionSum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Alice", 1000, "50.00")

	steps := []struct {
		debit  bool
		amount int64
	}{
		{true, 300}, {false, 45}, {true, 700}, {false, 10}, {true, 55},
	}
	for _, step := range steps {
		m := coins(acc.ID, step.amount, models.TxAdminAdjustment, "step")
		var err error
		if step.debit {
			_, err = env.engine.Ledger.Debit(ctx, env.admin, m)
		} else {
			_, err = env.engine.Ledger.Credit(ctx, env.admin, m)
		}
		require.NoError(t, err)
	}
	_, err := env.engine.Ledger.Debit(ctx, env.admin, Movement{
		AccountID: acc.ID, Currency: models.CurrencyCash, Amount: cash("12.50"),
	})
	require.NoError(t, err)

	b := env.balances(t, acc.ID)
	assert.Equal(t, int64(0), b.Coins)
	assert.True(t, b.Cash.Equal(cash("37.50")), "cash = %s", b.Cash)

	rec, err := env.engine.Ledger.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsConsistent)
	assert.Equal(t, rec.StoredCoins, rec.LedgerCoins)
}

func TestLedger_DebitInsufficientBalanceHasNoEffect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Bob", 100, "")
	before := env.txCount(t, acc.ID)

	_, err := env.engine.Ledger.Debit(ctx, env.admin, coins(acc.ID, 101, models.TxAdminAdjustment, ""))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(100), env.balances(t, acc.ID).Coins)
	assert.Equal(t, before, env.txCount(t, acc.ID))
	assert.Equal(t, int64(0), env.auditCount(t, models.AuditBalanceDebit, acc.ID))
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Carol", 100, "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Ledger.Debit(context.Background(), env.admin, coins(acc.ID, 60, models.TxAdminAdjustment, "race"))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(40), env.balances(t, acc.ID).Coins)
}

func TestLedger_AmountValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Dan", 10, "")

	tests := []struct {
		name     string
		currency models.Currency
		amount   decimal.Decimal
		want     error
	}{
		{"zero", models.CurrencyCoin, decimal.Zero, ErrInvalidAmount},
		{"negative", models.CurrencyCoin, decimal.NewFromInt(-5), ErrInvalidAmount},
		{"fractional coins", models.CurrencyCoin, cash("1.5"), ErrInvalidAmount},
		{"cash sub-cent", models.CurrencyCash, cash("0.001"), ErrInvalidAmount},
		{"unknown currency", models.Currency("gems"), decimal.NewFromInt(1), ErrInvalidCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Ledger.Credit(ctx, env.admin, Movement{AccountID: acc.ID, Currency: tt.currency, Amount: tt.amount})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(10), env.balances(t, acc.ID).Coins)
}

func TestLedger_RejectsAmountsBeyondColumnRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Dora", 100, "20.00")
	before := env.txCount(t, acc.ID)

	tests := []struct {
		name     string
		debit    bool
		currency models.Currency
		amount   string
	}{
		{"coins wrapping past int64", false, models.CurrencyCoin, "18446744073709551621"},
		{"coins at uint64 max", false, models.CurrencyCoin, "18446744073709551615"},
		{"coins one past limit", false, models.CurrencyCoin, "1000000000000000000"},
		{"cash one past limit", false, models.CurrencyCash, "1000000000000000000.00"},
		{"huge coin debit", true, models.CurrencyCoin, "18446744073709551621"},
		{"huge cash debit", true, models.CurrencyCash, "99999999999999999999.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Movement{AccountID: acc.ID, Currency: tt.currency, Amount: cash(tt.amount)}
			var err error
			if tt.debit {
				_, err = env.engine.Ledger.Debit(ctx, env.admin, m)
			} else {
				_, err = env.engine.Ledger.Credit(ctx, env.admin, m)
			}
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}

	b := env.balances(t, acc.ID)
	assert.Equal(t, int64(100), b.Coins)
	assert.True(t, b.Cash.Equal(cash("20.00")), "cash = %s", b.Cash)
	assert.Equal(t, before, env.txCount(t, acc.ID))

	rec, err := env.engine.Ledger.Reconcile(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsConsistent)
}

func TestLedger_CreditStopsAtBalanceLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Ezra", 999999999999999990, "")
	before := env.txCount(t, acc.ID)

	_, err := env.engine.Ledger.Credit(ctx, env.admin, coins(acc.ID, 10, "", ""))
	assert.ErrorIs(t, err, ErrBalanceLimit)
	assert.Equal(t, int64(999999999999999990), env.balances(t, acc.ID).Coins)
	assert.Equal(t, before, env.txCount(t, acc.ID))

	_, err = env.engine.Ledger.Credit(ctx, env.admin, coins(acc.ID, 9, "", ""))
	require.NoError(t, err)
	assert.Equal(t, int64(999999999999999999), env.balances(t, acc.ID).Coins)
}

func TestLedger_CreditUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Ledger.Credit(context.Background(), env.admin, coins(env.admin.ID, 10, "", ""))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, ClassNotFound, Classify(err))
}

func TestLedger_CreditIsAudited(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Eve", 0, "")

	_, err := env.engine.Ledger.Credit(context.Background(), env.admin, coins(acc.ID, 250, "", "goodwill"))
	require.NoError(t, err)

	entries, total, err := env.engine.Audit.Query(context.Background(), AuditFilter{TargetID: &acc.ID, Action: models.AuditBalanceCredit})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, env.admin.ID, *entries[0].ActorID)
	assert.Equal(t, models.ActorAdmin, entries[0].ActorKind)
	assert.Equal(t, "goodwill", entries[0].Description)
}

func TestPurchaseWithCash_GrantsCoinsAndMembership(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Fay", 0, "30.00")

	res, err := env.engine.Ledger.PurchaseWithCash(context.Background(), UserActor(acc.ID, ""), CashPurchase{
		AccountID:   acc.ID,
		PriceCash:   cash("19.99"),
		Coins:       200,
		Membership:  &MembershipGrant{Tier: models.TierGold, DurationDays: 30},
		Description: "bundle",
	})
	require.NoError(t, err)
	assert.True(t, res.Cash.Equal(cash("10.01")), "cash = %s", res.Cash)
	assert.Equal(t, int64(200), res.Coins)
	require.NotNil(t, res.Membership)
	assert.Equal(t, models.TierGold, res.Membership.Tier)
	assert.Equal(t, int64(1), env.auditCount(t, models.AuditCashPurchase, acc.ID))
}

func TestPurchaseWithCash_FailureRollsBackDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Gus", 0, "30.00")
	_, err := env.engine.Entitlements.ChangeTier(ctx, env.admin, acc.ID, models.TierPlatinum, nil)
	require.NoError(t, err)
	before := env.txCount(t, acc.ID)

	_, err = env.engine.Ledger.PurchaseWithCash(ctx, UserActor(acc.ID, ""), CashPurchase{
		AccountID:  acc.ID,
		PriceCash:  cash("9.99"),
		Coins:      100,
		Membership: &MembershipGrant{Tier: models.TierGold, DurationDays: 30},
	})
	assert.ErrorIs(t, err, ErrRedundantMembership)

	b := env.balances(t, acc.ID)
	assert.True(t, b.Cash.Equal(cash("30.00")))
	assert.Equal(t, int64(0), b.Coins)
	assert.Equal(t, before, env.txCount(t, acc.ID))
}

func TestPurchaseWithCash_InsufficientCash(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Hal", 0, "5.00")

	_, err := env.engine.Ledger.PurchaseWithCash(context.Background(), UserActor(acc.ID, ""), CashPurchase{
		AccountID: acc.ID,
		PriceCash: cash("9.99"),
		Coins:     100,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(0), env.balances(t, acc.ID).Coins)
}

func TestPurchaseWithCash_RequiresGoods(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Ida", 0, "5.00")

	_, err := env.engine.Ledger.PurchaseWithCash(context.Background(), UserActor(acc.ID, ""), CashPurchase{
		AccountID: acc.ID,
		PriceCash: cash("1.00"),
	})
	assert.ErrorIs(t, err, ErrInvalidPurchase)
}

func TestLedger_TransactionsFilterByCurrency(t *testing.T) {
	env := newTestEnv(t)
	acc := env.newAccount(t, "Jo", 100, "10.00")

	entries, total, err := env.engine.Ledger.Transactions(context.Background(), acc.ID, TransactionFilter{Currency: models.CurrencyCash})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.CurrencyCash, entries[0].Currency)

	_, _, err = env.engine.Ledger.Transactions(context.Background(), acc.ID, TransactionFilter{Currency: "gems"})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
