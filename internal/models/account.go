package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MembershipTier string

const (
	TierStandard MembershipTier = "standard"
	TierGold     MembershipTier = "gold"
	TierPlatinum MembershipTier = "platinum"
)

var membershipRanks = map[MembershipTier]int{
	TierStandard: 0,
	TierGold:     1,
	TierPlatinum: 2,
}

// Rank orders membership tiers; unknown tiers rank -1.
func (t MembershipTier) Rank() int {
	if r, ok := membershipRanks[t]; ok {
		return r
	}
	return -1
}

func (t MembershipTier) Valid() bool {
	_, ok := membershipRanks[t]
	return ok
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the engine's view of a dating-app member. Profile data lives in the
// profile service; only the fields the economy needs are stored here.
type Account struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName         string          `gorm:"size:100" json:"display_name"`
	Email               string          `gorm:"size:255;index" json:"-"`
	Phone               string          `gorm:"size:50" json:"-"`
	Role                string          `gorm:"size:20;default:'user'" json:"role"`
	ReferralCode        string          `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	ProfileCompletedAt  *time.Time      `json:"profile_completed_at,omitempty"`
	CoinBalance         int64           `gorm:"not null;default:0" json:"coin_balance"`
	CashBalance         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"cash_balance"`
	MembershipTier      MembershipTier  `gorm:"size:20;not null;default:'standard'" json:"membership_tier"`
	MembershipExpiresAt *time.Time      `json:"membership_expires_at,omitempty"`
	IsBanned            bool            `gorm:"not null;default:false;index" json:"is_banned"`
	BanExpiresAt        *time.Time      `json:"ban_expires_at,omitempty"`
	BanReason           *string         `gorm:"size:500" json:"ban_reason,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ReferralCode == "" {
		a.ReferralCode = NewReferralCode()
	}
	if a.MembershipTier == "" {
		a.MembershipTier = TierStandard
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	return nil
}

func (Account) TableName() string {
	return "accounts"
}

// NewReferralCode returns an 8 character upper-case code.
func NewReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}
