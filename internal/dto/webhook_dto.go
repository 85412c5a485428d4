package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCapturedEvent is posted by the payment integration after a charge
// has been captured and verified.
type PaymentCapturedEvent struct {
	EventID   string          `json:"event_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Provider  string          `json:"provider"`
}

type ProfileCompletedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
}

// AccountSyncedEvent mirrors an account created or edited in the profile
// service.
type AccountSyncedEvent struct {
	AccountID   uuid.UUID `json:"account_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
}
