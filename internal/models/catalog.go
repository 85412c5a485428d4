package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GiftTierConfig is the admin-editable catalog row for one gift tier.
type GiftTierConfig struct {
	Tier              GiftTier  `gorm:"size:20;primaryKey" json:"tier"`
	Rank              int       `gorm:"not null" json:"rank"`
	DisplayName       string    `gorm:"size:100;not null" json:"display_name"`
	Icon              string    `gorm:"size:255" json:"icon"`
	Description       string    `gorm:"size:500" json:"description"`
	PriceCoins        int64     `gorm:"not null" json:"price_coins"`
	Enabled           bool      `gorm:"not null;default:true" json:"enabled"`
	SharesContactInfo bool      `gorm:"not null;default:false" json:"shares_contact_info"`
	CanSendMessage    bool      `gorm:"not null;default:false" json:"can_send_message"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (GiftTierConfig) TableName() string {
	return "gift_tier_configs"
}

// MembershipPlan is a purchasable membership priced in cash.
type MembershipPlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Tier         MembershipTier  `gorm:"size:20;not null;uniqueIndex:idx_plan_tier_days,priority:1" json:"tier"`
	DurationDays int             `gorm:"not null;uniqueIndex:idx_plan_tier_days,priority:2" json:"duration_days"`
	PriceCash    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price_cash"`
	Enabled      bool            `gorm:"not null;default:true" json:"enabled"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p *MembershipPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (MembershipPlan) TableName() string {
	return "membership_plans"
}

// CoinPackage converts cash into coins.
type CoinPackage struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Coins     int64           `gorm:"not null" json:"coins"`
	PriceCash decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price_cash"`
	Enabled   bool            `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p *CoinPackage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (CoinPackage) TableName() string {
	return "coin_packages"
}

// TierPolicy holds the capability set unlocked by a membership tier.
type TierPolicy struct {
	Tier              MembershipTier `gorm:"size:20;primaryKey" json:"tier"`
	PhotoSlots        int            `gorm:"not null" json:"photo_slots"`
	OrientationFilter bool           `gorm:"not null" json:"orientation_filter"`
	PriorityDisplay   bool           `gorm:"not null" json:"priority_display"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (TierPolicy) TableName() string {
	return "tier_policies"
}
