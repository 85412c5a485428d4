package dto

import "github.com/shopspring/decimal"

type GiftTierPatchRequest struct {
	DisplayName       *string `json:"display_name"`
	Icon              *string `json:"icon"`
	Description       *string `json:"description"`
	PriceCoins        *int64  `json:"price_coins"`
	Enabled           *bool   `json:"enabled"`
	SharesContactInfo *bool   `json:"shares_contact_info"`
	CanSendMessage    *bool   `json:"can_send_message"`
}

type CreatePlanRequest struct {
	Tier         string          `json:"tier"`
	DurationDays int             `json:"duration_days"`
	PriceCash    decimal.Decimal `json:"price_cash"`
}

type PlanPatchRequest struct {
	PriceCash *decimal.Decimal `json:"price_cash"`
	Enabled   *bool            `json:"enabled"`
}

type CreatePackageRequest struct {
	Name      string          `json:"name"`
	Coins     int64           `json:"coins"`
	PriceCash decimal.Decimal `json:"price_cash"`
}

type PackagePatchRequest struct {
	Name      *string          `json:"name"`
	Coins     *int64           `json:"coins"`
	PriceCash *decimal.Decimal `json:"price_cash"`
	Enabled   *bool            `json:"enabled"`
}

type TierPolicyPatchRequest struct {
	PhotoSlots        *int  `json:"photo_slots"`
	OrientationFilter *bool `json:"orientation_filter"`
	PriorityDisplay   *bool `json:"priority_display"`
}

type SettingRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}
