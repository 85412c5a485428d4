package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

// BanTerm is either permanent or ends at a fixed instant.
type BanTerm struct {
	until *time.Time
}

func PermanentBan() BanTerm { return BanTerm{} }

func BanUntil(t time.Time) BanTerm {
	t = t.UTC()
	return BanTerm{until: &t}
}

// BanForDays returns a term ending days after now. days must be positive.
func BanForDays(now time.Time, days int) (BanTerm, error) {
	if days <= 0 {
		return BanTerm{}, ErrInvalidDuration
	}
	return BanUntil(now.AddDate(0, 0, days)), nil
}

func (t BanTerm) Permanent() bool { return t.until == nil }

// Until returns the expiry and false for permanent bans.
func (t BanTerm) Until() (time.Time, bool) {
	if t.until == nil {
		return time.Time{}, false
	}
	return *t.until, true
}

func (t BanTerm) String() string {
	if t.until == nil {
		return "permanent"
	}
	return "until " + t.until.Format(time.RFC3339)
}

type BanStatus struct {
	AccountID uuid.UUID  `json:"account_id"`
	Banned    bool       `json:"is_banned"`
	Permanent bool       `json:"permanent"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
}

type UnbanResult struct {
	WasBanned bool      `json:"was_banned"`
	Previous  BanStatus `json:"previous"`
}

func banStatus(acc *models.Account, now time.Time) BanStatus {
	status := BanStatus{AccountID: acc.ID}
	if !acc.IsBanned {
		return status
	}
	if acc.BanExpiresAt != nil && !acc.BanExpiresAt.After(now) {
		return status
	}
	status.Banned = true
	status.Permanent = acc.BanExpiresAt == nil
	status.ExpiresAt = acc.BanExpiresAt
	status.Reason = acc.BanReason
	return status
}

func banExpired(acc *models.Account, now time.Time) bool {
	return acc.IsBanned && acc.BanExpiresAt != nil && !acc.BanExpiresAt.After(now)
}

// ModerationService owns bans, blocks and the content filter.
type ModerationService struct {
	store
	audit *AuditService

	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
	compiled            bool
	mu                  sync.RWMutex
}

func NewModerationService(db *gorm.DB, opts Options, audit *AuditService) *ModerationService {
	ms := &ModerationService{store: newStore(db, opts), audit: audit}
	ms.compilePatterns()
	return ms
}

func (ms *ModerationService) compilePatterns() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.compiled {
		return
	}

	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err == nil {
			ms.bannedWordRegexps = append(ms.bannedWordRegexps, re)
		}
	}

	ms.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	ms.repeatedCharPattern = regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)
	ms.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	ms.compiled = true
}

// FilterContent checks free text shown to another member. It returns false
// and a reason code when the text must be rejected.
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if text == "" {
		return true, ""
	}
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if ms.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if ms.emailPattern.MatchString(text) || ms.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	if len(ms.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

func (ms *ModerationService) RejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your message contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact information is not allowed in gift messages.",
		"spam_detected":            "Your message appears to be spam.",
		"excessive_caps":           "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your message does not meet our content guidelines."
}

func validReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 500 {
		return "", ErrInvalidReason
	}
	return reason, nil
}

// Ban bans target for term and audits it.
func (s *ModerationService) Ban(ctx context.Context, actor Actor, targetID uuid.UUID, reason string, term BanTerm) (*BanStatus, error) {
	reason, err := validReason(reason)
	if err != nil {
		return nil, err
	}
	if until, ok := term.Until(); ok && !until.After(s.now()) {
		return nil, ErrInvalidBanTerm
	}

	var status *BanStatus
	err = s.transact(ctx, func(tx *gorm.DB) error {
		next, prev, err := s.ban(tx, targetID, reason, term)
		if err != nil {
			return err
		}
		status = next
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditBan,
			Target:      &targetID,
			Description: fmt.Sprintf("banned %s: %s", term, reason),
			Old:         prev,
			New:         next,
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("account banned", "account_id", targetID, "term", term.String())
	return status, nil
}

// ban applies the ban inside tx without auditing. A stale expired ban is
// overwritten; an effective one yields ErrAlreadyBanned.
func (s *ModerationService) ban(tx *gorm.DB, targetID uuid.UUID, reason string, term BanTerm) (*BanStatus, *BanStatus, error) {
	acc, err := lockAccount(tx, targetID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	prev := banStatus(acc, now)
	if prev.Banned {
		return nil, nil, ErrAlreadyBanned
	}

	var expires *time.Time
	if until, ok := term.Until(); ok {
		expires = &until
	}
	if err := tx.Model(acc).Updates(map[string]interface{}{
		"is_banned":      true,
		"ban_expires_at": expires,
		"ban_reason":     reason,
		"updated_at":     now,
	}).Error; err != nil {
		return nil, nil, err
	}
	return &BanStatus{
		AccountID: targetID,
		Banned:    true,
		Permanent: expires == nil,
		ExpiresAt: expires,
		Reason:    &reason,
	}, &prev, nil
}

// Unban lifts an effective ban. Unbanning an account that is not banned is a
// no-op reported through WasBanned.
func (s *ModerationService) Unban(ctx context.Context, actor Actor, targetID uuid.UUID) (*UnbanResult, error) {
	var result UnbanResult
	err := s.transact(ctx, func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, targetID)
		if err != nil {
			return err
		}
		now := s.now()
		result.Previous = banStatus(acc, now)
		result.WasBanned = result.Previous.Banned
		if !acc.IsBanned {
			return nil
		}
		if err := clearBan(tx, acc, now); err != nil {
			return err
		}
		if !result.WasBanned {
			return nil
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditUnban,
			Target:      &targetID,
			Description: "ban lifted",
			Old:         result.Previous,
			New:         BanStatus{AccountID: targetID},
		})
	})
	if err != nil {
		return nil, err
	}
	if result.WasBanned {
		slog.Info("account unbanned", "account_id", targetID)
	}
	return &result, nil
}

func clearBan(tx *gorm.DB, acc *models.Account, now time.Time) error {
	return tx.Model(acc).Updates(map[string]interface{}{
		"is_banned":      false,
		"ban_expires_at": nil,
		"ban_reason":     nil,
		"updated_at":     now,
	}).Error
}

// IsBanned returns the effective ban state, clearing an expired ban on read.
func (s *ModerationService) IsBanned(ctx context.Context, accountID uuid.UUID) (*BanStatus, error) {
	var acc *models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		acc, err = loadAccount(db, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	if banExpired(acc, now) {
		err := s.transact(ctx, func(tx *gorm.DB) error {
			locked, err := lockAccount(tx, accountID)
			if err != nil {
				return err
			}
			if !banExpired(locked, now) {
				return nil
			}
			return clearBan(tx, locked, now)
		})
		if err != nil {
			slog.Warn("lazy ban clear failed", "account_id", accountID, "error", err)
		}
	}
	status := banStatus(acc, now)
	return &status, nil
}

// SweepExpiredBans clears every ban whose expiry has passed.
func (s *ModerationService) SweepExpiredBans(ctx context.Context) (int64, error) {
	var affected int64
	now := s.now()
	err := s.transact(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{}).
			Where("is_banned = ? AND ban_expires_at IS NOT NULL AND ban_expires_at <= ?", true, now).
			Updates(map[string]interface{}{
				"is_banned":      false,
				"ban_expires_at": nil,
				"ban_reason":     nil,
				"updated_at":     now,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// Blocks

func (s *ModerationService) BlockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}
	return s.transact(ctx, func(tx *gorm.DB) error {
		if _, err := loadAccount(tx, blockedID); err != nil {
			return err
		}
		blocked, err := isBlocked(tx, blockerID, blockedID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrAlreadyBlocked
		}
		return tx.Omit(clause.Associations).Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: s.now()}).Error
	})
}

func (s *ModerationService) UnblockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return s.transact(ctx, func(tx *gorm.DB) error {
		return tx.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			Delete(&models.Block{}).Error
	})
}

func (s *ModerationService) BlockedIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.Block
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("blocker_id = ?", accountID).Order("created_at DESC").Find(&blocks).Error
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockedID
	}
	return ids, nil
}

// isBlocked reports whether blocker has blocked blocked.
func isBlocked(tx *gorm.DB, blockerID, blockedID uuid.UUID) (bool, error) {
	var block models.Block
	err := tx.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
