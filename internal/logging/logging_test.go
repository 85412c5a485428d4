package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.SystemLog{}))
	return db
}

func TestPGHandler_PersistsErrorsOnly(t *testing.T) {
	db := newTestDB(t)
	pg := NewPGHandler(db, time.Hour)
	defer pg.Stop()

	log := slog.New(NewFanout(Sink{Handler: slog.NewTextHandler(discard{}, nil)}, Sink{Handler: pg})).
		With("request_id", "req-1")
	log.Info("ignored")
	log.Error("debit failed",
		"account_id", "acc-1",
		"operation", "POST /api/gifts",
		"error", "insufficient balance",
		"tier", "GOLD",
	)
	pg.Flush()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "debit failed", entry.Message)
	assert.Equal(t, "req-1", entry.RequestID)
	require.NotNil(t, entry.AccountID)
	assert.Equal(t, "acc-1", *entry.AccountID)
	assert.Equal(t, "POST /api/gifts", entry.Operation)
	assert.Equal(t, "insufficient balance", entry.Error)
	assert.JSONEq(t, `{"tier":"GOLD"}`, string(entry.Extra))
}

func TestPurgeSystemLogs(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&[]models.SystemLog{
		{Timestamp: now.AddDate(0, 0, -40), Level: "ERROR", Message: "old"},
		{Timestamp: now.AddDate(0, 0, -1), Level: "ERROR", Message: "recent"},
	}).Error)

	n, err := PurgeSystemLogs(context.Background(), db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []models.SystemLog
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "recent", left[0].Message)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
