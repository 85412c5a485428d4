package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseService sells catalog products for cash and books captured
// payments into cash balances.
type PurchaseService struct {
	store
	ledger *LedgerService
	audit  *AuditService
}

func NewPurchaseService(db *gorm.DB, opts Options, ledger *LedgerService, audit *AuditService) *PurchaseService {
	return &PurchaseService{store: newStore(db, opts), ledger: ledger, audit: audit}
}

// BuyMembershipPlan charges the plan price and grants its tier and duration.
func (s *PurchaseService) BuyMembershipPlan(ctx context.Context, actor Actor, accountID, planID uuid.UUID) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := s.transact(ctx, func(tx *gorm.DB) error {
		plan, err := membershipPlan(tx, planID)
		if err != nil {
			return err
		}
		if !plan.Enabled {
			return ErrProductUnavailable
		}
		p := CashPurchase{
			AccountID:   accountID,
			PriceCash:   plan.PriceCash.Round(2),
			Membership:  &MembershipGrant{Tier: plan.Tier, DurationDays: plan.DurationDays},
			Description: fmt.Sprintf("membership %s %dd", plan.Tier, plan.DurationDays),
		}
		if err := p.validate(); err != nil {
			return err
		}
		result, err = s.ledger.purchaseWithCash(tx, actor, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("membership plan purchased", "account_id", accountID, "plan_id", planID)
	return result, nil
}

// BuyCoinPackage charges the package price and credits its coins.
func (s *PurchaseService) BuyCoinPackage(ctx context.Context, actor Actor, accountID, packageID uuid.UUID) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := s.transact(ctx, func(tx *gorm.DB) error {
		pkg, err := coinPackage(tx, packageID)
		if err != nil {
			return err
		}
		if !pkg.Enabled {
			return ErrProductUnavailable
		}
		p := CashPurchase{
			AccountID:   accountID,
			PriceCash:   pkg.PriceCash.Round(2),
			Coins:       pkg.Coins,
			Description: "coin package " + pkg.Name,
		}
		if err := p.validate(); err != nil {
			return err
		}
		result, err = s.ledger.purchaseWithCash(tx, actor, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("coin package purchased", "account_id", accountID, "package_id", packageID)
	return result, nil
}

type PaymentCaptureInput struct {
	ExternalID string
	AccountID  uuid.UUID
	Amount     decimal.Decimal
	Provider   string
}

type CaptureResult struct {
	Duplicate bool            `json:"duplicate"`
	Cash      decimal.Decimal `json:"cash"`
}

// CapturePayment credits a verified external payment to the cash balance.
// Redelivery of the same ExternalID is acknowledged without crediting again.
func (s *PurchaseService) CapturePayment(ctx context.Context, in PaymentCaptureInput) (*CaptureResult, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	if in.ExternalID == "" || len(in.ExternalID) > 255 {
		return nil, ErrInvalidPayment
	}
	if err := validateAmount(models.CurrencyCash, in.Amount); err != nil {
		return nil, err
	}

	result := &CaptureResult{}
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var existing models.PaymentCapture
		err := tx.First(&existing, "external_id = ?", in.ExternalID).Error
		if err == nil {
			acc, err := loadAccount(tx, existing.AccountID)
			if err != nil {
				return err
			}
			*result = CaptureResult{Duplicate: true, Cash: acc.CashBalance.Round(2)}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		capture := models.PaymentCapture{
			ExternalID: in.ExternalID,
			AccountID:  in.AccountID,
			Amount:     in.Amount,
			Provider:   in.Provider,
			CreatedAt:  s.now(),
		}
		if err := tx.Create(&capture).Error; err != nil {
			return err
		}
		entry, err := s.ledger.credit(tx, Movement{
			AccountID:   in.AccountID,
			Currency:    models.CurrencyCash,
			Amount:      in.Amount,
			Category:    models.TxCashTopUp,
			Description: in.Provider + " payment " + in.ExternalID,
		})
		if err != nil {
			return err
		}
		*result = CaptureResult{Cash: entry.BalanceAfter}
		return s.audit.record(tx, auditRecord{
			Actor:       SystemActor(),
			Action:      models.AuditPaymentCaptured,
			Target:      &in.AccountID,
			Description: "payment captured",
			New:         map[string]interface{}{"external_id": in.ExternalID, "amount": in.Amount.StringFixed(2), "provider": in.Provider},
		})
	})
	if err != nil {
		return nil, err
	}
	if !result.Duplicate {
		slog.Info("payment captured", "account_id", in.AccountID, "external_id", in.ExternalID, "amount", in.Amount.String())
	}
	return result, nil
}
