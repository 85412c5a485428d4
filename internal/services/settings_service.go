package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"gorm.io/gorm"
)

// Economy settings stored in remote_configs.
const (
	SettingReferralRewardCoins = "referral_reward_coins"
	SettingReportRewardMin     = "report_reward_min"
	SettingReportRewardMax     = "report_reward_max"
)

var settingTypes = map[string]bool{"string": true, "bool": true, "int": true, "json": true}

// SettingsDefaults are used when a setting has no stored override.
type SettingsDefaults struct {
	ReferralRewardCoins int64
	ReportRewardMin     int64
	ReportRewardMax     int64
}

// SettingsService manages runtime-tunable values kept in remote_configs.
type SettingsService struct {
	store
	audit    *AuditService
	defaults SettingsDefaults
}

func NewSettingsService(db *gorm.DB, opts Options, audit *AuditService, defaults SettingsDefaults) *SettingsService {
	return &SettingsService{store: newStore(db, opts), audit: audit, defaults: defaults}
}

func (s *SettingsService) defaultInt(key string) (int64, bool) {
	switch key {
	case SettingReferralRewardCoins:
		return s.defaults.ReferralRewardCoins, true
	case SettingReportRewardMin:
		return s.defaults.ReportRewardMin, true
	case SettingReportRewardMax:
		return s.defaults.ReportRewardMax, true
	}
	return 0, false
}

// All returns every stored setting decoded by type, with economy defaults
// filled in for keys that are not overridden.
func (s *SettingsService) All(ctx context.Context) (map[string]interface{}, error) {
	var configs []models.RemoteConfig
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Order("key ASC").Find(&configs).Error
	})
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		SettingReferralRewardCoins: s.defaults.ReferralRewardCoins,
		SettingReportRewardMin:     s.defaults.ReportRewardMin,
		SettingReportRewardMax:     s.defaults.ReportRewardMax,
	}
	for _, cfg := range configs {
		result[cfg.Key] = decodeSetting(cfg)
	}
	return result, nil
}

func decodeSetting(cfg models.RemoteConfig) interface{} {
	var value interface{}
	switch cfg.Type {
	case "bool":
		value, _ = strconv.ParseBool(cfg.Value)
	case "int":
		value, _ = strconv.ParseInt(cfg.Value, 10, 64)
	case "json":
		_ = json.Unmarshal([]byte(cfg.Value), &value)
	default:
		value = cfg.Value
	}
	return value
}

func validateSetting(key, value, typ string) error {
	if key == "" || len(key) > 100 || !settingTypes[typ] {
		return ErrInvalidSetting
	}
	switch typ {
	case "bool":
		if _, err := strconv.ParseBool(value); err != nil {
			return ErrInvalidSetting
		}
	case "int":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return ErrInvalidSetting
		}
	case "json":
		if !json.Valid([]byte(value)) {
			return ErrInvalidSetting
		}
	}
	return nil
}

// int64Setting reads key inside tx, falling back to the configured default.
func (s *SettingsService) int64Setting(tx *gorm.DB, key string) (int64, error) {
	fallback, _ := s.defaultInt(key)
	var cfg models.RemoteConfig
	err := tx.First(&cfg, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(cfg.Value, 10, 64)
	if err != nil {
		slog.Warn("unparseable setting, using default", "key", key, "value", cfg.Value)
		return fallback, nil
	}
	return v, nil
}

// referralReward returns the coins credited to each side of a referral.
func (s *SettingsService) referralReward(tx *gorm.DB) (int64, error) {
	return s.int64Setting(tx, SettingReferralRewardCoins)
}

// reportRewardBounds returns the inclusive reporter reward range.
func (s *SettingsService) reportRewardBounds(tx *gorm.DB) (int64, int64, error) {
	lo, err := s.int64Setting(tx, SettingReportRewardMin)
	if err != nil {
		return 0, 0, err
	}
	hi, err := s.int64Setting(tx, SettingReportRewardMax)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// Set creates or replaces a setting. Economy keys must be non-negative
// integers and keep min at or below max.
func (s *SettingsService) Set(ctx context.Context, actor Actor, key, value, typ string) (*models.RemoteConfig, error) {
	key = strings.TrimSpace(key)
	if typ == "" {
		typ = "string"
	}
	if _, economic := s.defaultInt(key); economic {
		typ = "int"
	}
	if err := validateSetting(key, value, typ); err != nil {
		return nil, err
	}

	var saved models.RemoteConfig
	err := s.transact(ctx, func(tx *gorm.DB) error {
		if err := s.checkEconomySetting(tx, key, value); err != nil {
			return err
		}

		var old *models.RemoteConfig
		var existing models.RemoteConfig
		err := tx.First(&existing, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = models.RemoteConfig{Key: key, Value: value, Type: typ}
			if err := tx.Create(&saved).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			prev := existing
			old = &prev
			existing.Value = value
			existing.Type = typ
			existing.UpdatedAt = s.now()
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			saved = existing
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditSettingUpdated,
			Description: "setting " + key + " updated",
			Old:         old,
			New:         saved,
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("setting updated", "key", key)
	return &saved, nil
}

func (s *SettingsService) checkEconomySetting(tx *gorm.DB, key, value string) error {
	if _, economic := s.defaultInt(key); !economic {
		return nil
	}
	v, _ := strconv.ParseInt(value, 10, 64)
	if v < 0 {
		return ErrInvalidSetting
	}
	switch key {
	case SettingReportRewardMin:
		hi, err := s.int64Setting(tx, SettingReportRewardMax)
		if err != nil {
			return err
		}
		if v == 0 || v > hi {
			return ErrInvalidSetting
		}
	case SettingReportRewardMax:
		lo, err := s.int64Setting(tx, SettingReportRewardMin)
		if err != nil {
			return err
		}
		if v < lo {
			return ErrInvalidSetting
		}
	}
	return nil
}

// Delete removes a stored setting; economy keys fall back to their defaults.
func (s *SettingsService) Delete(ctx context.Context, actor Actor, key string) error {
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var existing models.RemoteConfig
		if err := tx.First(&existing, "key = ?", key).Error; err != nil {
			return notFound(err, ErrSettingNotFound)
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditSettingDeleted,
			Description: "setting " + key + " deleted",
			Old:         existing,
		})
	})
	if err != nil {
		return err
	}
	slog.Info("setting deleted", "key", key)
	return nil
}
