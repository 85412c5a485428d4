package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Currency string

const (
	CurrencyCoin Currency = "coin"
	CurrencyCash Currency = "cash"
)

func (c Currency) Valid() bool {
	return c == CurrencyCoin || c == CurrencyCash
}

// Transaction categories.
const (
	TxGiftPurchase       = "gift_purchase"
	TxMembershipPurchase = "membership_purchase"
	TxCoinPurchase       = "coin_purchase"
	TxCashPurchase       = "cash_purchase"
	TxCashTopUp          = "cash_topup"
	TxReferralReward     = "referral_reward"
	TxReportReward       = "report_reward"
	TxAdminAdjustment    = "admin_adjustment"
)

// Transaction is an append-only balance movement. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_tx_account_currency,priority:1" json:"account_id"`
	Currency     Currency        `gorm:"size:10;not null;index:idx_tx_account_currency,priority:2" json:"currency"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance_after"`
	Category     string          `gorm:"size:50;not null;index" json:"category"`
	Description  string          `gorm:"size:255" json:"description"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (Transaction) TableName() string {
	return "transactions"
}
