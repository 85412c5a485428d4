package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GiftTier string

const (
	GiftSilver  GiftTier = "SILVER"
	GiftGold    GiftTier = "GOLD"
	GiftEmerald GiftTier = "EMERALD"
	GiftDiamond GiftTier = "DIAMOND"
	GiftRuby    GiftTier = "RUBY"
)

// GiftTiers lists the tiers in ascending value.
var GiftTiers = []GiftTier{GiftSilver, GiftGold, GiftEmerald, GiftDiamond, GiftRuby}

func (t GiftTier) Valid() bool {
	for _, v := range GiftTiers {
		if v == t {
			return true
		}
	}
	return false
}

type GiftStatus string

const (
	GiftPending  GiftStatus = "pending"
	GiftAccepted GiftStatus = "accepted"
	GiftRejected GiftStatus = "rejected"
)

// Gift is a purchased gift. Price and reveal flags are copied from the tier
// config at send time so later admin edits never change historical gifts.
type Gift struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Tier              GiftTier   `gorm:"size:20;not null" json:"tier"`
	PriceCoins        int64      `gorm:"not null" json:"price_coins"`
	SharesContactInfo bool       `gorm:"not null" json:"shares_contact_info"`
	CanSendMessage    bool       `gorm:"not null" json:"can_send_message"`
	Message           *string    `gorm:"size:500" json:"-"`
	IsViewed          bool       `gorm:"not null;default:false" json:"is_viewed"`
	ViewedAt          *time.Time `json:"viewed_at,omitempty"`
	Status            GiftStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	Sender            Account    `gorm:"foreignKey:SenderID" json:"-"`
	Receiver          Account    `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (g *Gift) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (Gift) TableName() string {
	return "gifts"
}
