package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralService validates and applies referral codes and pays the reward
// once the referee completes their profile.
type ReferralService struct {
	store
	ledger   *LedgerService
	settings *SettingsService
	audit    *AuditService
}

func NewReferralService(db *gorm.DB, opts Options, ledger *LedgerService, settings *SettingsService, audit *AuditService) *ReferralService {
	return &ReferralService{store: newStore(db, opts), ledger: ledger, settings: settings, audit: audit}
}

type ReferrerSummary struct {
	ReferrerID  uuid.UUID `json:"referrer_id"`
	DisplayName string    `json:"display_name"`
	Code        string    `json:"code"`
}

type RewardResult struct {
	Rewarded   bool       `json:"rewarded"`
	ReferrerID *uuid.UUID `json:"referrer_id,omitempty"`
	Coins      int64      `json:"coins"`
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func accountByCode(tx *gorm.DB, code string) (*models.Account, error) {
	if code == "" {
		return nil, ErrInvalidReferralCode
	}
	var acc models.Account
	if err := tx.First(&acc, "referral_code = ?", code).Error; err != nil {
		return nil, notFound(err, ErrInvalidReferralCode)
	}
	return &acc, nil
}

// ValidateCode resolves code to its owner. A caller's own code is invalid.
func (s *ReferralService) ValidateCode(ctx context.Context, callerID uuid.UUID, code string) (*ReferrerSummary, error) {
	code = normalizeCode(code)
	var acc *models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		acc, err = accountByCode(db, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	if acc.ID == callerID {
		return nil, ErrInvalidReferralCode
	}
	return &ReferrerSummary{ReferrerID: acc.ID, DisplayName: acc.DisplayName, Code: acc.ReferralCode}, nil
}

// ApplyCode links the referee to the code's owner. Before the reward is paid
// the referee may switch to another code; afterwards ErrAlreadyApplied.
func (s *ReferralService) ApplyCode(ctx context.Context, refereeID uuid.UUID, code string) (*models.ReferralGrant, error) {
	code = normalizeCode(code)
	var grant models.ReferralGrant
	err := s.transact(ctx, func(tx *gorm.DB) error {
		referee, err := loadAccount(tx, refereeID)
		if err != nil {
			return err
		}
		if referee.ProfileCompletedAt != nil {
			return ErrProfileAlreadyCompleted
		}
		referrer, err := accountByCode(tx, code)
		if err != nil {
			return err
		}
		if referrer.ID == refereeID {
			return ErrSelfReferral
		}

		err = tx.First(&grant, "referee_id = ?", refereeID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			grant = models.ReferralGrant{ReferrerID: referrer.ID, RefereeID: refereeID, Code: code}
			return tx.Create(&grant).Error
		case err != nil:
			return err
		case grant.Applied:
			return ErrAlreadyApplied
		}

		res := tx.Model(&models.ReferralGrant{}).
			Where("id = ? AND applied = ?", grant.ID, false).
			Updates(map[string]interface{}{"referrer_id": referrer.ID, "code": code, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyApplied
		}
		grant.ReferrerID = referrer.ID
		grant.Code = code
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("referral code applied", "account_id", refereeID, "referrer_id", grant.ReferrerID)
	return &grant, nil
}

// RewardOnCompletion marks the referee's profile completed and, if a pending
// grant exists, flips it to applied and credits both sides. Concurrent or
// repeated calls pay at most once.
func (s *ReferralService) RewardOnCompletion(ctx context.Context, refereeID uuid.UUID) (*RewardResult, error) {
	result := &RewardResult{}
	err := s.transact(ctx, func(tx *gorm.DB) error {
		*result = RewardResult{}
		if _, err := loadAccount(tx, refereeID); err != nil {
			return err
		}
		now := s.now()
		if err := tx.Model(&models.Account{}).
			Where("id = ? AND profile_completed_at IS NULL", refereeID).
			Updates(map[string]interface{}{"profile_completed_at": now, "updated_at": now}).Error; err != nil {
			return err
		}

		reward, err := s.settings.referralReward(tx)
		if err != nil {
			return err
		}
		res := tx.Model(&models.ReferralGrant{}).
			Where("referee_id = ? AND applied = ?", refereeID, false).
			Updates(map[string]interface{}{"applied": true, "applied_at": now, "reward_coins": reward, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var grant models.ReferralGrant
		if err := tx.First(&grant, "referee_id = ?", refereeID).Error; err != nil {
			return err
		}
		if reward > 0 {
			if _, err := s.ledger.credit(tx, coins(grant.ReferrerID, reward, models.TxReferralReward, "referral reward")); err != nil {
				return err
			}
			if _, err := s.ledger.credit(tx, coins(refereeID, reward, models.TxReferralReward, "referral welcome reward")); err != nil {
				return err
			}
		}
		referrerID := grant.ReferrerID
		*result = RewardResult{Rewarded: true, ReferrerID: &referrerID, Coins: reward}
		return s.audit.record(tx, auditRecord{
			Actor:       SystemActor(),
			Action:      models.AuditReferralRewarded,
			Target:      &refereeID,
			Description: "referral reward paid",
			New:         map[string]interface{}{"referrer_id": referrerID, "referee_id": refereeID, "coins": reward},
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Rewarded {
		slog.Info("referral rewarded", "account_id", refereeID, "referrer_id", result.ReferrerID, "coins", result.Coins)
	}
	return result, nil
}
