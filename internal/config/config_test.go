package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("STORAGE_TIMEOUT", "2s")
	t.Setenv("REFERRAL_REWARD_COINS", "250")
	t.Setenv("REPORT_REWARD_MAX", "5000")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "secret", cfg.DBPassword)
	assert.Equal(t, 2*time.Second, cfg.StorageTimeout)
	assert.Equal(t, int64(250), cfg.ReferralRewardCoins)
	assert.Equal(t, int64(100), cfg.ReportRewardMin)
	assert.Equal(t, int64(5000), cfg.ReportRewardMax)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "TimeZone=UTC")
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORAGE_TIMEOUT", "soon")
	t.Setenv("REFERRAL_REWARD_COINS", "lots")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.Equal(t, int64(100), cfg.ReferralRewardCoins)
	assert.Equal(t, "8080", cfg.Port)
}
