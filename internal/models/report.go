package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportApproved ReportStatus = "APPROVED"
	ReportRejected ReportStatus = "REJECTED"
)

// Report is an abuse report against another member. It moves from PENDING to a
// terminal status exactly once.
type Report struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ReportedID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"reported_id"`
	Reason       string       `gorm:"not null;size:500" json:"reason"`
	Status       ReportStatus `gorm:"not null;default:'PENDING';size:20;index" json:"status"`
	ReviewedBy   *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewNote   *string      `gorm:"size:1000" json:"review_note,omitempty"`
	RewardAmount *int64       `json:"reward_amount,omitempty"`
	BanApplied   bool         `gorm:"not null;default:false" json:"ban_applied"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Reporter     Account      `gorm:"foreignKey:ReporterID" json:"-"`
	Reported     Account      `gorm:"foreignKey:ReportedID" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Report) TableName() string {
	return "reports"
}
