package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntitlementService tracks membership tier and expiry per account.
type EntitlementService struct {
	store
	audit   *AuditService
	pricing *PricingService
}

func NewEntitlementService(db *gorm.DB, opts Options, audit *AuditService, pricing *PricingService) *EntitlementService {
	return &EntitlementService{store: newStore(db, opts), audit: audit, pricing: pricing}
}

type TierFeatures struct {
	PhotoSlots        int  `json:"photo_slots"`
	OrientationFilter bool `json:"orientation_filter"`
	PriorityDisplay   bool `json:"priority_display"`
}

type MembershipState struct {
	AccountID uuid.UUID             `json:"account_id"`
	Tier      models.MembershipTier `json:"tier"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	Features  *TierFeatures         `json:"features,omitempty"`
}

// Permanent reports a paid tier without expiry.
func (m MembershipState) Permanent() bool {
	return m.Tier != models.TierStandard && m.ExpiresAt == nil
}

// effectiveMembership applies expiry without writing it back.
func effectiveMembership(acc *models.Account, now time.Time) MembershipState {
	state := MembershipState{AccountID: acc.ID, Tier: acc.MembershipTier, ExpiresAt: acc.MembershipExpiresAt}
	if state.Tier == "" {
		state.Tier = models.TierStandard
	}
	if state.Tier == models.TierStandard {
		state.ExpiresAt = nil
		return state
	}
	if state.ExpiresAt != nil && !state.ExpiresAt.After(now) {
		return MembershipState{AccountID: acc.ID, Tier: models.TierStandard}
	}
	return state
}

func membershipExpired(acc *models.Account, now time.Time) bool {
	return acc.MembershipTier != models.TierStandard &&
		acc.MembershipExpiresAt != nil &&
		!acc.MembershipExpiresAt.After(now)
}

// GrantMembership adds durationDays of tier to the account and audits it.
func (s *EntitlementService) GrantMembership(ctx context.Context, actor Actor, accountID uuid.UUID, tier models.MembershipTier, durationDays int) (*MembershipState, error) {
	if !tier.Valid() || tier == models.TierStandard {
		return nil, ErrInvalidTier
	}
	if durationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	var state *MembershipState
	err := s.transact(ctx, func(tx *gorm.DB) error {
		next, prev, err := s.grant(tx, accountID, tier, durationDays)
		if err != nil {
			return err
		}
		state = next
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditMembershipGranted,
			Target:      &accountID,
			Description: "membership granted",
			Old:         prev,
			New:         map[string]interface{}{"tier": next.Tier, "expires_at": next.ExpiresAt, "duration_days": durationDays},
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("membership granted", "account_id", accountID, "tier", tier, "days", durationDays)
	return state, nil
}

// grant applies the stacking policy inside tx. Same or higher tier extends
// from the later of now and the current expiry; a lower tier replaces the
// current one starting now.
func (s *EntitlementService) grant(tx *gorm.DB, accountID uuid.UUID, tier models.MembershipTier, days int) (*MembershipState, *MembershipState, error) {
	acc, err := lockAccount(tx, accountID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	current := effectiveMembership(acc, now)
	if current.Permanent() && tier.Rank() <= current.Tier.Rank() {
		return nil, nil, ErrRedundantMembership
	}

	base := now
	if tier.Rank() >= current.Tier.Rank() && current.ExpiresAt != nil && current.ExpiresAt.After(now) {
		base = *current.ExpiresAt
	}
	expires := base.AddDate(0, 0, days)

	if err := tx.Model(acc).Updates(map[string]interface{}{
		"membership_tier":       tier,
		"membership_expires_at": expires,
		"updated_at":            now,
	}).Error; err != nil {
		return nil, nil, err
	}
	return &MembershipState{AccountID: accountID, Tier: tier, ExpiresAt: &expires}, &current, nil
}

// ChangeTier sets the tier directly. A nil expiresAt makes the grant
// non-expiring; standard always clears the expiry.
func (s *EntitlementService) ChangeTier(ctx context.Context, actor Actor, accountID uuid.UUID, tier models.MembershipTier, expiresAt *time.Time) (*MembershipState, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	if tier == models.TierStandard {
		expiresAt = nil
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		if !t.After(s.now()) {
			return nil, ErrInvalidDuration
		}
		expiresAt = &t
	}

	var state *MembershipState
	err := s.transact(ctx, func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		prev := effectiveMembership(acc, s.now())
		if err := tx.Model(acc).Updates(map[string]interface{}{
			"membership_tier":       tier,
			"membership_expires_at": expiresAt,
			"updated_at":            s.now(),
		}).Error; err != nil {
			return err
		}
		state = &MembershipState{AccountID: accountID, Tier: tier, ExpiresAt: expiresAt}
		return s.audit.record(tx, auditRecord{
			Actor:       actor,
			Action:      models.AuditTierChanged,
			Target:      &accountID,
			Description: "membership tier changed",
			Old:         prev,
			New:         state,
		})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("membership tier changed", "account_id", accountID, "tier", tier)
	return state, nil
}

// Membership returns the effective tier with its feature flags. An expired
// tier is written back as standard.
func (s *EntitlementService) Membership(ctx context.Context, accountID uuid.UUID) (*MembershipState, error) {
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
	if membershipExpired(acc, now) {
		if err := s.downgrade(ctx, accountID, now); err != nil {
			slog.Warn("lazy membership downgrade failed", "account_id", accountID, "error", err)
		}
	}

	state := effectiveMembership(acc, now)
	features, err := s.FeatureFlags(ctx, state.Tier)
	if err != nil {
		return nil, err
	}
	state.Features = &features
	return &state, nil
}

func (s *EntitlementService) downgrade(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	return s.transact(ctx, func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		if !membershipExpired(acc, now) {
			return nil
		}
		return tx.Model(acc).Updates(map[string]interface{}{
			"membership_tier":       models.TierStandard,
			"membership_expires_at": nil,
			"updated_at":            now,
		}).Error
	})
}

// IsActive reports whether the account currently holds tier or better.
func (s *EntitlementService) IsActive(ctx context.Context, accountID uuid.UUID, tier models.MembershipTier) (bool, error) {
	if !tier.Valid() {
		return false, ErrInvalidTier
	}
	state, err := s.Membership(ctx, accountID)
	if err != nil {
		return false, err
	}
	return state.Tier.Rank() >= tier.Rank(), nil
}

// FeatureFlags returns the capability set for tier from the admin-editable
// tier policies, falling back to built-in defaults.
func (s *EntitlementService) FeatureFlags(ctx context.Context, tier models.MembershipTier) (TierFeatures, error) {
	if !tier.Valid() {
		return TierFeatures{}, ErrInvalidTier
	}
	policy, err := s.pricing.TierPolicy(ctx, tier)
	if err != nil {
		return TierFeatures{}, err
	}
	return TierFeatures{
		PhotoSlots:        policy.PhotoSlots,
		OrientationFilter: policy.OrientationFilter,
		PriorityDisplay:   policy.PriorityDisplay,
	}, nil
}

// SweepExpired downgrades every expired membership. Reads already apply
// expiry lazily; the sweep keeps reporting queries accurate.
func (s *EntitlementService) SweepExpired(ctx context.Context) (int64, error) {
	var affected int64
	now := s.now()
	err := s.transact(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{}).
			Where("membership_tier <> ? AND membership_expires_at IS NOT NULL AND membership_expires_at <= ?", models.TierStandard, now).
			Updates(map[string]interface{}{
				"membership_tier":       models.TierStandard,
				"membership_expires_at": nil,
				"updated_at":            now,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}
