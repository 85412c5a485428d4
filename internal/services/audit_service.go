package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditService appends and queries audit entries. Entries are written inside
// the caller's transaction so they commit or roll back with the mutation.
type AuditService struct {
	store
}

func NewAuditService(db *gorm.DB, opts Options) *AuditService {
	return &AuditService{store: newStore(db, opts)}
}

// auditRecord describes one privileged mutation.
type auditRecord struct {
	Actor       Actor
	Action      string
	Target      *uuid.UUID
	Description string
	Old         interface{}
	New         interface{}
}

func (s *AuditService) record(tx *gorm.DB, r auditRecord) error {
	oldValue, err := toJSON(r.Old)
	if err != nil {
		return fmt.Errorf("%w: %s old value: %v", ErrAuditEncoding, r.Action, err)
	}
	newValue, err := toJSON(r.New)
	if err != nil {
		return fmt.Errorf("%w: %s new value: %v", ErrAuditEncoding, r.Action, err)
	}
	entry := models.AuditLogEntry{
		ActorID:         r.Actor.actorID(),
		ActorKind:       r.Actor.kind(),
		TargetAccountID: r.Target,
		Action:          r.Action,
		Description:     r.Description,
		OldValue:        oldValue,
		NewValue:        newValue,
		CreatedAt:       s.now(),
	}
	if r.Actor.SourceAddress != "" {
		addr := r.Actor.SourceAddress
		entry.SourceAddress = &addr
	}
	return tx.Create(&entry).Error
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

type AuditFilter struct {
	ActorID  *uuid.UUID
	TargetID *uuid.UUID
	Action   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// Query returns entries matching filter, newest first, with the total count.
func (s *AuditService) Query(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)
	var entries []models.AuditLogEntry
	var total int64
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Model(&models.AuditLogEntry{})
		if filter.ActorID != nil {
			query = query.Where("actor_id = ?", *filter.ActorID)
		}
		if filter.TargetID != nil {
			query = query.Where("target_account_id = ?", *filter.TargetID)
		}
		if filter.Action != "" {
			query = query.Where("action = ?", filter.Action)
		}
		if filter.From != nil {
			query = query.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("created_at < ?", *filter.To)
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		return query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
