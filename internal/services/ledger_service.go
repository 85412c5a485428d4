package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService owns coin and cash balances. Every balance change is a
// conditional UPDATE on the account row plus an appended Transaction, so two
// concurrent debits can never both pass the funds check.
type LedgerService struct {
	store
	audit        *AuditService
	entitlements *EntitlementService
}

func NewLedgerService(db *gorm.DB, opts Options, audit *AuditService, entitlements *EntitlementService) *LedgerService {
	return &LedgerService{store: newStore(db, opts), audit: audit, entitlements: entitlements}
}

type Balances struct {
	AccountID uuid.UUID       `json:"account_id"`
	Coins     int64           `json:"coins"`
	Cash      decimal.Decimal `json:"cash"`
}

// Movement is one requested balance change. Amount is always positive; the
// direction comes from the operation.
type Movement struct {
	AccountID   uuid.UUID
	Currency    models.Currency
	Amount      decimal.Decimal
	Category    string
	Description string
}

func balanceColumn(c models.Currency) string {
	if c == models.CurrencyCash {
		return "cash_balance"
	}
	return "coin_balance"
}

// maxBalance is the largest amount or balance either column can hold:
// numeric(20,2) for cash, and well inside int64 for coins.
var maxBalance = decimal.New(1, 18).Sub(decimal.NewFromInt(1))

func validateAmount(currency models.Currency, amount decimal.Decimal) error {
	if !currency.Valid() {
		return ErrInvalidCurrency
	}
	if amount.Sign() <= 0 || amount.GreaterThan(maxBalance) {
		return ErrInvalidAmount
	}
	switch currency {
	case models.CurrencyCoin:
		if !amount.IsInteger() {
			return ErrInvalidAmount
		}
	case models.CurrencyCash:
		if !amount.Equal(amount.Round(2)) {
			return ErrInvalidAmount
		}
	}
	return nil
}

// sqlAmount converts amount into the bind value for the balance column.
func sqlAmount(currency models.Currency, amount decimal.Decimal) interface{} {
	if currency == models.CurrencyCoin {
		return amount.IntPart()
	}
	return amount.StringFixed(2)
}

func balanceOf(acc *models.Account, currency models.Currency) decimal.Decimal {
	if currency == models.CurrencyCash {
		return acc.CashBalance.Round(2)
	}
	return decimal.NewFromInt(acc.CoinBalance)
}

// Balances returns the current coin and cash balances.
func (s *LedgerService) Balances(ctx context.Context, accountID uuid.UUID) (*Balances, error) {
	var acc *models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		acc, err = loadAccount(db, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Balances{AccountID: acc.ID, Coins: acc.CoinBalance, Cash: acc.CashBalance.Round(2)}, nil
}

// Credit adds funds on behalf of actor and records an audit entry.
func (s *LedgerService) Credit(ctx context.Context, actor Actor, m Movement) (*models.Transaction, error) {
	return s.adjust(ctx, actor, m, false)
}

// Debit removes funds on behalf of actor. It fails with ErrInsufficientBalance
// without side effects when the balance would go negative.
func (s *LedgerService) Debit(ctx context.Context, actor Actor, m Movement) (*models.Transaction, error) {
	return s.adjust(ctx, actor, m, true)
}

func (s *LedgerService) adjust(ctx context.Context, actor Actor, m Movement, isDebit bool) (*models.Transaction, error) {
	if err := validateAmount(m.Currency, m.Amount); err != nil {
		return nil, err
	}
	if m.Category == "" {
		m.Category = models.TxAdminAdjustment
	}
	action := models.AuditBalanceCredit
	if isDebit {
		action = models.AuditBalanceDebit
	}

	var entry *models.Transaction
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var err error
		if isDebit {
			entry, err = s.debit(tx, m)
		} else {
			entry, err = s.credit(tx, m)
		}
		if err != nil {
			return err
		}
		target := m.AccountID
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      action,
			Target:      &target,
			Description: m.Description,
			Old:         map[string]string{"balance": entry.BalanceAfter.Sub(entry.Amount).String(), "currency": string(m.Currency)},
			New:         map[string]string{"balance": entry.BalanceAfter.String(), "currency": string(m.Currency), "category": m.Category},
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("balance adjusted", "account_id", m.AccountID, "action", action, "currency", m.Currency, "amount", m.Amount.String())
	return entry, nil
}

// credit applies m inside tx without auditing. Composite operations record
// their own audit entry.
func (s *LedgerService) credit(tx *gorm.DB, m Movement) (*models.Transaction, error) {
	if err := validateAmount(m.Currency, m.Amount); err != nil {
		return nil, err
	}
	col := balanceColumn(m.Currency)
	headroom := sqlAmount(m.Currency, maxBalance.Sub(m.Amount))
	res := tx.Model(&models.Account{}).
		Where("id = ? AND "+col+" <= ?", m.AccountID, headroom).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col+" + ?", sqlAmount(m.Currency, m.Amount)),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := loadAccount(tx, m.AccountID); err != nil {
			return nil, err
		}
		return nil, ErrBalanceLimit
	}
	return s.append(tx, m, m.Amount)
}

// debit applies m inside tx without auditing. The balance check and the
// decrement are one statement.
func (s *LedgerService) debit(tx *gorm.DB, m Movement) (*models.Transaction, error) {
	if err := validateAmount(m.Currency, m.Amount); err != nil {
		return nil, err
	}
	col := balanceColumn(m.Currency)
	amount := sqlAmount(m.Currency, m.Amount)
	res := tx.Model(&models.Account{}).
		Where("id = ? AND "+col+" >= ?", m.AccountID, amount).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col+" - ?", amount),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := loadAccount(tx, m.AccountID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientBalance
	}
	return s.append(tx, m, m.Amount.Neg())
}

func (s *LedgerService) append(tx *gorm.DB, m Movement, signed decimal.Decimal) (*models.Transaction, error) {
	acc, err := loadAccount(tx, m.AccountID)
	if err != nil {
		return nil, err
	}
	entry := &models.Transaction{
		AccountID:    m.AccountID,
		Currency:     m.Currency,
		Amount:       signed,
		BalanceAfter: balanceOf(acc, m.Currency),
		Category:     m.Category,
		Description:  m.Description,
		CreatedAt:    s.now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func coins(accountID uuid.UUID, amount int64, category, description string) Movement {
	return Movement{
		AccountID:   accountID,
		Currency:    models.CurrencyCoin,
		Amount:      decimal.NewFromInt(amount),
		Category:    category,
		Description: description,
	}
}

type MembershipGrant struct {
	Tier         models.MembershipTier `json:"tier"`
	DurationDays int                   `json:"duration_days"`
}

// CashPurchase converts cash into coins, a membership, or both.
type CashPurchase struct {
	AccountID   uuid.UUID
	PriceCash   decimal.Decimal
	Coins       int64
	Membership  *MembershipGrant
	Description string
}

type PurchaseResult struct {
	Cash       decimal.Decimal  `json:"cash"`
	Coins      int64            `json:"coins"`
	Membership *MembershipState `json:"membership,omitempty"`
}

func (p CashPurchase) validate() error {
	if err := validateAmount(models.CurrencyCash, p.PriceCash); err != nil {
		return err
	}
	if p.Coins < 0 {
		return ErrInvalidAmount
	}
	if p.Coins == 0 && p.Membership == nil {
		return ErrInvalidPurchase
	}
	if p.Membership != nil {
		if !p.Membership.Tier.Valid() || p.Membership.Tier == models.TierStandard {
			return ErrInvalidTier
		}
		if p.Membership.DurationDays <= 0 {
			return ErrInvalidDuration
		}
	}
	return nil
}

// PurchaseWithCash debits cash and grants the purchased goods atomically.
// If any step fails nothing is applied.
func (s *LedgerService) PurchaseWithCash(ctx context.Context, actor Actor, p CashPurchase) (*PurchaseResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var result *PurchaseResult
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.purchaseWithCash(tx, actor, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("cash purchase completed", "account_id", p.AccountID, "price", p.PriceCash.String(), "coins", p.Coins)
	return result, nil
}

func (s *LedgerService) purchaseWithCash(tx *gorm.DB, actor Actor, p CashPurchase) (*PurchaseResult, error) {
	category := models.TxCashPurchase
	if p.Coins == 0 {
		category = models.TxMembershipPurchase
	}
	cashEntry, err := s.debit(tx, Movement{
		AccountID:   p.AccountID,
		Currency:    models.CurrencyCash,
		Amount:      p.PriceCash,
		Category:    category,
		Description: p.Description,
	})
	if err != nil {
		return nil, err
	}

	result := &PurchaseResult{Cash: cashEntry.BalanceAfter}
	if p.Coins > 0 {
		coinEntry, err := s.credit(tx, coins(p.AccountID, p.Coins, models.TxCoinPurchase, p.Description))
		if err != nil {
			return nil, err
		}
		result.Coins = coinEntry.BalanceAfter.IntPart()
	} else {
		acc, err := loadAccount(tx, p.AccountID)
		if err != nil {
			return nil, err
		}
		result.Coins = acc.CoinBalance
	}

	if p.Membership != nil {
		state, _, err := s.entitlements.grant(tx, p.AccountID, p.Membership.Tier, p.Membership.DurationDays)
		if err != nil {
			return nil, err
		}
		result.Membership = state
	}

	target := p.AccountID
	return result, s.audit.record(tx, auditRecord{
		Actor:       actor,
		Action:      models.AuditCashPurchase,
		Target:      &target,
		Description: p.Description,
		New: map[string]interface{}{
			"price_cash": p.PriceCash.StringFixed(2),
			"coins":      p.Coins,
			"membership": p.Membership,
		},
	})
}

type TransactionFilter struct {
	Currency models.Currency
	Limit    int
	Offset   int
}

// Transactions lists an account's ledger entries, newest first.
func (s *LedgerService) Transactions(ctx context.Context, accountID uuid.UUID, filter TransactionFilter) ([]models.Transaction, int64, error) {
	if filter.Currency != "" && !filter.Currency.Valid() {
		return nil, 0, ErrInvalidCurrency
	}
	limit, offset := clampPage(filter.Limit, filter.Offset)
	var entries []models.Transaction
	var total int64
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Model(&models.Transaction{}).Where("account_id = ?", accountID)
		if filter.Currency != "" {
			query = query.Where("currency = ?", filter.Currency)
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		return query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

type Reconciliation struct {
	AccountID    uuid.UUID       `json:"account_id"`
	StoredCoins  int64           `json:"stored_coins"`
	LedgerCoins  int64           `json:"ledger_coins"`
	StoredCash   decimal.Decimal `json:"stored_cash"`
	LedgerCash   decimal.Decimal `json:"ledger_cash"`
	IsConsistent bool            `json:"is_consistent"`
}

// Reconcile compares stored balances against the sum of the account's
// transactions.
func (s *LedgerService) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	var rec Reconciliation
	err := s.read(ctx, func(db *gorm.DB) error {
		acc, err := loadAccount(db, accountID)
		if err != nil {
			return err
		}
		var coinSum, cashSum decimal.NullDecimal
		if err := sumTransactions(db, accountID, models.CurrencyCoin, &coinSum); err != nil {
			return err
		}
		if err := sumTransactions(db, accountID, models.CurrencyCash, &cashSum); err != nil {
			return err
		}
		rec = Reconciliation{
			AccountID:   acc.ID,
			StoredCoins: acc.CoinBalance,
			LedgerCoins: coinSum.Decimal.IntPart(),
			StoredCash:  acc.CashBalance.Round(2),
			LedgerCash:  cashSum.Decimal.Round(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rec.IsConsistent = rec.StoredCoins == rec.LedgerCoins && rec.StoredCash.Equal(rec.LedgerCash)
	if !rec.IsConsistent {
		slog.Error("ledger mismatch", "account_id", accountID,
			"stored_coins", rec.StoredCoins, "ledger_coins", rec.LedgerCoins,
			"stored_cash", rec.StoredCash.String(), "ledger_cash", rec.LedgerCash.String())
	}
	return &rec, nil
}

func sumTransactions(db *gorm.DB, accountID uuid.UUID, currency models.Currency, out *decimal.NullDecimal) error {
	row := db.Model(&models.Transaction{}).
		Select("SUM(amount)").
		Where("account_id = ? AND currency = ?", accountID, currency).
		Row()
	if err := row.Scan(out); err != nil {
		return fmt.Errorf("sum %s transactions: %w", currency, err)
	}
	return nil
}
