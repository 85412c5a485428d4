package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/database"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db     *gorm.DB
	engine *Engine
	clock  *fakeClock
	admin  Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(db, Options{StorageTimeout: 10 * time.Second, Now: clock.Now}, SettingsDefaults{
		ReferralRewardCoins: 100,
		ReportRewardMin:     100,
		ReportRewardMax:     10000,
	})
	require.NoError(t, engine.Pricing.SeedDefaults(context.Background()))

	return &testEnv{
		db:     db,
		engine: engine,
		clock:  clock,
		admin:  AdminActor(uuid.New(), "127.0.0.1"),
	}
}

// newAccount creates an account funded through the ledger so reconciliation holds.
func (e *testEnv) newAccount(t *testing.T, name string, coinBalance int64, cashBalance string) *models.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := e.engine.Accounts.Sync(ctx, AccountSync{
		ID:          uuid.New(),
		DisplayName: name,
		Email:       strings.ToLower(name) + "@example.com",
		Phone:       "+90 555 000 0000",
	})
	require.NoError(t, err)
	if coinBalance > 0 {
		_, err := e.engine.Ledger.Credit(ctx, e.admin, Movement{
			AccountID: acc.ID,
			Currency:  models.CurrencyCoin,
			Amount:    decimal.NewFromInt(coinBalance),
		})
		require.NoError(t, err)
	}
	if cashBalance != "" {
		_, err := e.engine.Ledger.Credit(ctx, e.admin, Movement{
			AccountID: acc.ID,
			Currency:  models.CurrencyCash,
			Amount:    decimal.RequireFromString(cashBalance),
		})
		require.NoError(t, err)
	}
	return acc
}

func (e *testEnv) balances(t *testing.T, id uuid.UUID) *Balances {
	t.Helper()
	b, err := e.engine.Ledger.Balances(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (e *testEnv) auditCount(t *testing.T, action string, target uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.AuditLogEntry{}).
		Where("action = ? AND target_account_id = ?", action, target).
		Count(&n).Error)
	return n
}

func (e *testEnv) txCount(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Transaction{}).Where("account_id = ?", id).Count(&n).Error)
	return n
}

func cash(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
