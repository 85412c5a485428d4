package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BalanceAdjustRequest struct {
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type BalanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Coins     int64           `json:"coins"`
	Cash      decimal.Decimal `json:"cash"`
}

type GrantMembershipRequest struct {
	Tier         string `json:"tier"`
	DurationDays int    `json:"duration_days"`
}

// ChangeTierRequest sets a tier directly. A nil ExpiresAt never expires.
type ChangeTierRequest struct {
	Tier      string     `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type SendGiftRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Tier       string    `json:"tier"`
	Message    *string   `json:"message"`
}

type DecideGiftRequest struct {
	Accept *bool `json:"accept"`
}

type ReferralCodeRequest struct {
	Code string `json:"code"`
}

type BuyPlanRequest struct {
	PlanID uuid.UUID `json:"plan_id"`
}

type BuyPackageRequest struct {
	PackageID uuid.UUID `json:"package_id"`
}
