package dto

import "github.com/google/uuid"

type CreateReportRequest struct {
	ReportedID uuid.UUID `json:"reported_id"`
	Reason     string    `json:"reason"`
}

// ResolveReportRequest resolves a pending report. BanDays of 0 or absent
// bans permanently.
type ResolveReportRequest struct {
	Decision        string `json:"decision"`
	ReviewNote      string `json:"review_note"`
	BanReportedUser bool   `json:"ban_reported_user"`
	BanDays         int    `json:"ban_days"`
	BanReason       string `json:"ban_reason"`
	RewardReporter  bool   `json:"reward_reporter"`
	RewardAmount    int64  `json:"reward_amount"`
}

type BlockUserRequest struct {
	BlockedID uuid.UUID `json:"blocked_id"`
}

// BanRequest bans an account. Days of 0 bans permanently.
type BanRequest struct {
	Reason string `json:"reason"`
	Days   int    `json:"days"`
}
