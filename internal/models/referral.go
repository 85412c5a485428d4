package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralGrant links a referee to the referrer whose code they used. The unique
// index on RefereeID keeps one grant per referee.
type ReferralGrant struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"referrer_id"`
	RefereeID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"referee_id"`
	Code        string     `gorm:"size:16;not null" json:"code"`
	Applied     bool       `gorm:"not null;default:false" json:"applied"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
	RewardCoins int64      `gorm:"not null;default:0" json:"reward_coins"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (g *ReferralGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (ReferralGrant) TableName() string {
	return "referral_grants"
}
