package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorKind string

const (
	ActorAdmin  ActorKind = "admin"
	ActorUser   ActorKind = "user"
	ActorSystem ActorKind = "system"
)

// Audit actions. The set is open; new privileged mutations add their own.
const (
	AuditBalanceCredit     = "balance.credit"
	AuditBalanceDebit      = "balance.debit"
	AuditCashPurchase      = "purchase.cash"
	AuditPaymentCaptured   = "payment.captured"
	AuditMembershipGranted = "membership.granted"
	AuditTierChanged       = "membership.tier_changed"
	AuditGiftSent          = "gift.sent"
	AuditReferralRewarded  = "referral.rewarded"
	AuditBan               = "moderation.ban"
	AuditUnban             = "moderation.unban"
	AuditReportResolved    = "report.resolved"
	AuditGiftTierUpdated   = "config.gift_tier_updated"
	AuditPlanUpdated       = "config.membership_plan_updated"
	AuditPackageUpdated    = "config.coin_package_updated"
	AuditTierPolicyUpdated = "config.tier_policy_updated"
	AuditSettingUpdated    = "config.setting_updated"
	AuditSettingDeleted    = "config.setting_deleted"
)

// AuditLogEntry is an append-only record of a privileged mutation.
type AuditLogEntry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID         *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	ActorKind       ActorKind      `gorm:"size:20;not null" json:"actor_kind"`
	TargetAccountID *uuid.UUID     `gorm:"type:uuid;index" json:"target_account_id,omitempty"`
	Action          string         `gorm:"size:100;not null;index" json:"action"`
	Description     string         `gorm:"type:text" json:"description"`
	OldValue        datatypes.JSON `gorm:"type:jsonb" json:"old_value,omitempty"`
	NewValue        datatypes.JSON `gorm:"type:jsonb" json:"new_value,omitempty"`
	SourceAddress   *string        `gorm:"size:64" json:"source_address,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (e *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
