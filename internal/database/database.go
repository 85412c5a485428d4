package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Models lists every table owned by the engine.
func Models() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Transaction{},
		&models.GiftTierConfig{},
		&models.Gift{},
		&models.MembershipPlan{},
		&models.CoinPackage{},
		&models.TierPolicy{},
		&models.ReferralGrant{},
		&models.Report{},
		&models.Block{},
		&models.AuditLogEntry{},
		&models.PaymentCapture{},
		&models.RemoteConfig{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate for all engine models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
