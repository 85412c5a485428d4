package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportService handles abuse reports and their one-time resolution.
type ReportService struct {
	store
	ledger     *LedgerService
	moderation *ModerationService
	settings   *SettingsService
	audit      *AuditService
}

func NewReportService(db *gorm.DB, opts Options, ledger *LedgerService, moderation *ModerationService, settings *SettingsService, audit *AuditService) *ReportService {
	return &ReportService{
		store:      newStore(db, opts),
		ledger:     ledger,
		moderation: moderation,
		settings:   settings,
		audit:      audit,
	}
}

// Create files a pending report against reportedID.
func (s *ReportService) Create(ctx context.Context, reporterID, reportedID uuid.UUID, reason string) (*models.Report, error) {
	if reporterID == reportedID {
		return nil, ErrSelfReport
	}
	reason, err := validReason(reason)
	if err != nil {
		return nil, err
	}

	report := models.Report{ReporterID: reporterID, ReportedID: reportedID, Reason: reason, Status: models.ReportPending}
	err = s.transact(ctx, func(tx *gorm.DB) error {
		if _, err := loadAccount(tx, reporterID); err != nil {
			return err
		}
		if _, err := loadAccount(tx, reportedID); err != nil {
			return err
		}
		report.ID = uuid.Nil
		report.CreatedAt = s.now()
		report.UpdatedAt = report.CreatedAt
		return tx.Omit(clause.Associations).Create(&report).Error
	})
	if err != nil {
		return nil, err
	}
	slog.Info("report created", "report_id", report.ID, "account_id", reporterID, "reported_id", reportedID)
	return &report, nil
}

func validReportStatus(status models.ReportStatus) bool {
	switch status {
	case "", models.ReportPending, models.ReportApproved, models.ReportRejected:
		return true
	}
	return false
}

// List returns reports filtered by status, oldest first so review queues are
// worked in arrival order.
func (s *ReportService) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]models.Report, int64, error) {
	if !validReportStatus(status) {
		return nil, 0, ErrInvalidStatus
	}
	limit, offset = clampPage(limit, offset)
	var reports []models.Report
	var total int64
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Model(&models.Report{})
		if status != "" {
			query = query.Where("status = ?", status)
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		return query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&reports).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ReportService) Get(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	var report *models.Report
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		report, err = loadReport(db, reportID)
		return err
	})
	return report, err
}

func loadReport(tx *gorm.DB, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := tx.First(&report, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return &report, nil
}

type ResolveInput struct {
	Decision        models.ReportStatus
	ReviewNote      string
	BanReportedUser bool
	BanTerm         BanTerm
	BanReason       string
	RewardReporter  bool
	RewardAmount    int64
}

func (in ResolveInput) validate() error {
	switch in.Decision {
	case models.ReportApproved, models.ReportRejected:
	default:
		return ErrInvalidDecision
	}
	if in.Decision == models.ReportRejected && (in.BanReportedUser || in.RewardReporter) {
		return ErrInvalidResolution
	}
	if len(in.ReviewNote) > 1000 {
		return ErrInvalidReason
	}
	return nil
}

// Resolve moves a pending report to its terminal status. Ban, reward, status
// change and a single audit entry commit together or not at all.
func (s *ReportService) Resolve(ctx context.Context, actor Actor, reportID uuid.UUID, in ResolveInput) (*models.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if until, ok := in.BanTerm.Until(); in.BanReportedUser && ok && !until.After(s.now()) {
		return nil, ErrInvalidBanTerm
	}

	var report *models.Report
	err := s.transact(ctx, func(tx *gorm.DB) error {
		if in.RewardReporter {
			lo, hi, err := s.settings.reportRewardBounds(tx)
			if err != nil {
				return err
			}
			if in.RewardAmount < lo || in.RewardAmount > hi {
				return ErrRewardOutOfRange
			}
		}

		current, err := loadReport(tx, reportID)
		if err != nil {
			return err
		}
		if current.Status != models.ReportPending {
			return ErrReportNotPending
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":      in.Decision,
			"reviewed_by": actor.actorID(),
			"updated_at":  now,
		}
		if note := strings.TrimSpace(in.ReviewNote); note != "" {
			updates["review_note"] = note
		}
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.ReportPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReportNotPending
		}

		outcome := map[string]interface{}{"status": in.Decision}
		if in.BanReportedUser {
			reason := strings.TrimSpace(in.BanReason)
			if reason == "" {
				reason = current.Reason
			}
			status, _, err := s.moderation.ban(tx, current.ReportedID, reason, in.BanTerm)
			switch {
			case errors.Is(err, ErrAlreadyBanned):
				outcome["ban"] = "already_banned"
			case err != nil:
				return err
			default:
				outcome["ban"] = status
				if err := tx.Model(&models.Report{}).Where("id = ?", reportID).Update("ban_applied", true).Error; err != nil {
					return err
				}
			}
		}
		if in.RewardReporter {
			if _, err := s.ledger.credit(tx, coins(current.ReporterID, in.RewardAmount, models.TxReportReward, "report reward")); err != nil {
				return err
			}
			if err := tx.Model(&models.Report{}).Where("id = ?", reportID).Update("reward_amount", in.RewardAmount).Error; err != nil {
				return err
			}
			outcome["reward"] = map[string]interface{}{"reporter_id": current.ReporterID, "coins": in.RewardAmount}
		}

		if report, err = loadReport(tx, reportID); err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditReportResolved,
			Target:      &current.ReportedID,
			Description: "report " + reportID.String() + " resolved as " + string(in.Decision),
			Old:         map[string]interface{}{"status": current.Status},
			New:         outcome,
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("report resolved", "report_id", reportID, "status", in.Decision,
		"ban", in.BanReportedUser, "reward", in.RewardAmount)
	return report, nil
}
