package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentCapture records an externally verified cash payment. ExternalID makes
// webhook deliveries idempotent.
type PaymentCapture struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID string          `gorm:"size:255;not null;uniqueIndex" json:"external_id"`
	AccountID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Provider   string          `gorm:"size:50" json:"provider"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (p *PaymentCapture) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (PaymentCapture) TableName() string {
	return "payment_captures"
}
