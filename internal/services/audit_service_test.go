package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAuditRecord_UnencodableValueRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Fay", 100, "")
	before := env.txCount(t, acc.ID)

	err := env.engine.Audit.transact(ctx, func(tx *gorm.DB) error {
		if _, err := env.engine.Ledger.credit(tx, coins(acc.ID, 50, models.TxAdminAdjustment, "")); err != nil {
			return err
		}
		return env.engine.Audit.record(tx, auditRecord{
			Actor:  env.admin,
			Action: models.AuditBalanceCredit,
			Target: &acc.ID,
			Old:    map[string]interface{}{"balance": make(chan int)},
		})
	})
	require.ErrorIs(t, err, ErrAuditEncoding)
	assert.Equal(t, ClassInternal, Classify(err))
	assert.Equal(t, "audit_encoding", Code(err))

	assert.Equal(t, int64(100), env.balances(t, acc.ID).Coins)
	assert.Equal(t, before, env.txCount(t, acc.ID))
	assert.Equal(t, int64(1), env.auditCount(t, models.AuditBalanceCredit, acc.ID))
}

func TestAuditRecord_StoresOldAndNewValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "Gus", 0, "")

	_, err := env.engine.Ledger.Credit(ctx, env.admin, coins(acc.ID, 75, "", "welcome"))
	require.NoError(t, err)

	entries, _, err := env.engine.Audit.Query(ctx, AuditFilter{TargetID: &acc.ID, Action: models.AuditBalanceCredit})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"balance":"0","currency":"coin"}`, string(entries[0].OldValue))
	assert.JSONEq(t, `{"balance":"75","currency":"coin","category":"admin_adjustment"}`, string(entries[0].NewValue))
}
