package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxGiftMessageLength = 500

type GiftState string

const (
	GiftStateSent     GiftState = "SENT"
	GiftStateViewed   GiftState = "VIEWED"
	GiftStateAccepted GiftState = "ACCEPTED"
	GiftStateRejected GiftState = "REJECTED"
)

type ContactInfo struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// GiftView is a gift rendered for one viewer with reveal rules applied.
type GiftView struct {
	ID                uuid.UUID       `json:"id"`
	SenderID          uuid.UUID       `json:"sender_id"`
	ReceiverID        uuid.UUID       `json:"receiver_id"`
	Tier              models.GiftTier `json:"tier"`
	PriceCoins        int64           `json:"price_coins"`
	State             GiftState       `json:"state"`
	IsViewed          bool            `json:"is_viewed"`
	SharesContactInfo bool            `json:"shares_contact_info"`
	CanSendMessage    bool            `json:"can_send_message"`
	Message           *string         `json:"message,omitempty"`
	SenderContact     *ContactInfo    `json:"sender_contact,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ViewedAt          *time.Time      `json:"viewed_at,omitempty"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
}

func giftState(g *models.Gift) GiftState {
	switch {
	case g.Status == models.GiftAccepted:
		return GiftStateAccepted
	case g.Status == models.GiftRejected:
		return GiftStateRejected
	case g.IsViewed:
		return GiftStateViewed
	}
	return GiftStateSent
}

// renderGift applies reveal rules. The sender always sees their own message;
// the receiver sees it, and the sender's contact details, only after
// accepting a gift whose captured flags allow it.
func renderGift(g *models.Gift, viewerID uuid.UUID) *GiftView {
	v := &GiftView{
		ID:                g.ID,
		SenderID:          g.SenderID,
		ReceiverID:        g.ReceiverID,
		Tier:              g.Tier,
		PriceCoins:        g.PriceCoins,
		State:             giftState(g),
		IsViewed:          g.IsViewed,
		SharesContactInfo: g.SharesContactInfo,
		CanSendMessage:    g.CanSendMessage,
		CreatedAt:         g.CreatedAt,
		ViewedAt:          g.ViewedAt,
		DecidedAt:         g.DecidedAt,
	}
	if viewerID == g.SenderID {
		v.Message = g.Message
		return v
	}
	if g.Status != models.GiftAccepted {
		return v
	}
	if g.CanSendMessage {
		v.Message = g.Message
	}
	if g.SharesContactInfo {
		v.SenderContact = &ContactInfo{
			DisplayName: g.Sender.DisplayName,
			Email:       g.Sender.Email,
			Phone:       g.Sender.Phone,
		}
	}
	return v
}

// GiftService runs the send, view and decide workflow.
type GiftService struct {
	store
	ledger     *LedgerService
	moderation *ModerationService
	audit      *AuditService
}

func NewGiftService(db *gorm.DB, opts Options, ledger *LedgerService, moderation *ModerationService, audit *AuditService) *GiftService {
	return &GiftService{store: newStore(db, opts), ledger: ledger, moderation: moderation, audit: audit}
}

type SendGiftInput struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Tier       models.GiftTier
	Message    *string
}

func (s *GiftService) normalizeMessage(msg *string) (*string, error) {
	if msg == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*msg)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxGiftMessageLength {
		return nil, ErrInvalidGiftMessage
	}
	if ok, reason := s.moderation.FilterContent(trimmed); !ok {
		return nil, &ContentError{Reason: reason, Message: s.moderation.RejectionMessage(reason)}
	}
	return &trimmed, nil
}

// Send charges the sender the tier price and records the gift. The debit and
// the gift row commit together.
func (s *GiftService) Send(ctx context.Context, actor Actor, in SendGiftInput) (*GiftView, error) {
	if !in.Tier.Valid() {
		return nil, ErrInvalidTier
	}
	if in.SenderID == in.ReceiverID {
		return nil, ErrSelfGift
	}
	message, err := s.normalizeMessage(in.Message)
	if err != nil {
		return nil, err
	}

	var gift models.Gift
	err = s.transact(ctx, func(tx *gorm.DB) error {
		cfg, err := giftTierConfig(tx, in.Tier)
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return ErrGiftTierDisabled
		}
		if message != nil && !cfg.CanSendMessage {
			return ErrInvalidGiftMessage
		}

		sender, err := loadAccount(tx, in.SenderID)
		if err != nil {
			return err
		}
		if banStatus(sender, s.now()).Banned {
			return ErrAccountBanned
		}
		if _, err := loadAccount(tx, in.ReceiverID); err != nil {
			return err
		}
		blocked, err := isBlocked(tx, in.ReceiverID, in.SenderID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrGiftBlocked
		}

		if _, err := s.ledger.debit(tx, coins(in.SenderID, cfg.PriceCoins, models.TxGiftPurchase, "gift:"+string(in.Tier))); err != nil {
			return err
		}

		gift = models.Gift{
			SenderID:          in.SenderID,
			ReceiverID:        in.ReceiverID,
			Tier:              in.Tier,
			PriceCoins:        cfg.PriceCoins,
			SharesContactInfo: cfg.SharesContactInfo,
			CanSendMessage:    cfg.CanSendMessage,
			Message:           message,
			Status:            models.GiftPending,
			CreatedAt:         s.now(),
		}
		if err := tx.Omit(clause.Associations).Create(&gift).Error; err != nil {
			return err
		}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditGiftSent,
			Target:      &in.ReceiverID,
			Description: "gift " + string(in.Tier) + " sent",
			New:         map[string]interface{}{"gift_id": gift.ID, "tier": gift.Tier, "price_coins": gift.PriceCoins},
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("gift sent", "gift_id", gift.ID, "account_id", in.SenderID, "receiver_id", in.ReceiverID, "tier", in.Tier)
	return renderGift(&gift, in.SenderID), nil
}

func loadGift(tx *gorm.DB, giftID uuid.UUID) (*models.Gift, error) {
	var gift models.Gift
	if err := tx.Preload("Sender").First(&gift, "id = ?", giftID).Error; err != nil {
		return nil, notFound(err, ErrGiftNotFound)
	}
	return &gift, nil
}

// MarkViewed flags the gift as seen by its receiver. Repeated calls are no-ops.
func (s *GiftService) MarkViewed(ctx context.Context, giftID, receiverID uuid.UUID) (*GiftView, error) {
	var gift *models.Gift
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var err error
		gift, err = loadGift(tx, giftID)
		if err != nil {
			return err
		}
		if gift.ReceiverID != receiverID {
			return ErrNotReceiver
		}
		if gift.IsViewed {
			return nil
		}
		now := s.now()
		res := tx.Model(&models.Gift{}).
			Where("id = ? AND is_viewed = ?", giftID, false).
			Updates(map[string]interface{}{"is_viewed": true, "viewed_at": now})
		if res.Error != nil {
			return res.Error
		}
		gift, err = loadGift(tx, giftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return renderGift(gift, receiverID), nil
}

// Decide accepts or rejects a pending gift. Only the first decision takes
// effect; later calls, including a racing opposite decision, return the
// stored terminal state. Rejected gifts are not refunded.
func (s *GiftService) Decide(ctx context.Context, giftID, receiverID uuid.UUID, accept bool) (*GiftView, error) {
	status := models.GiftRejected
	if accept {
		status = models.GiftAccepted
	}

	var gift *models.Gift
	var applied bool
	err := s.transact(ctx, func(tx *gorm.DB) error {
		var err error
		gift, err = loadGift(tx, giftID)
		if err != nil {
			return err
		}
		if gift.ReceiverID != receiverID {
			return ErrNotReceiver
		}
		if gift.Status != models.GiftPending {
			return nil
		}

		now := s.now()
		updates := map[string]interface{}{"status": status, "decided_at": now, "is_viewed": true}
		if gift.ViewedAt == nil {
			updates["viewed_at"] = now
		}
		res := tx.Model(&models.Gift{}).
			Where("id = ? AND status = ?", giftID, models.GiftPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1
		gift, err = loadGift(tx, giftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if applied {
		slog.Info("gift decided", "gift_id", giftID, "account_id", receiverID, "status", status)
	}
	return renderGift(gift, receiverID), nil
}

type GiftFilter struct {
	Status models.GiftStatus
	Limit  int
	Offset int
}

func (s *GiftService) Received(ctx context.Context, receiverID uuid.UUID, filter GiftFilter) ([]GiftView, error) {
	return s.list(ctx, "receiver_id", receiverID, filter)
}

func (s *GiftService) Sent(ctx context.Context, senderID uuid.UUID, filter GiftFilter) ([]GiftView, error) {
	return s.list(ctx, "sender_id", senderID, filter)
}

func (s *GiftService) list(ctx context.Context, column string, viewerID uuid.UUID, filter GiftFilter) ([]GiftView, error) {
	switch filter.Status {
	case "", models.GiftPending, models.GiftAccepted, models.GiftRejected:
	default:
		return nil, ErrInvalidStatus
	}
	limit, offset := clampPage(filter.Limit, filter.Offset)
	var gifts []models.Gift
	err := s.read(ctx, func(db *gorm.DB) error {
		query := db.Preload("Sender").Where(column+" = ?", viewerID)
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		return query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&gifts).Error
	})
	if err != nil {
		return nil, err
	}
	views := make([]GiftView, len(gifts))
	for i := range gifts {
		views[i] = *renderGift(&gifts[i], viewerID)
	}
	return views, nil
}

// Get returns a gift to its sender or receiver. Anyone else gets
// ErrGiftNotFound.
func (s *GiftService) Get(ctx context.Context, giftID, viewerID uuid.UUID) (*GiftView, error) {
	var gift *models.Gift
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		gift, err = loadGift(db, giftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if gift.SenderID != viewerID && gift.ReceiverID != viewerID {
		return nil, ErrGiftNotFound
	}
	return renderGift(gift, viewerID), nil
}
