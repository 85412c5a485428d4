package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountService mirrors member accounts from the profile service so the
// economy has a row to hold balances, membership and ban state.
type AccountService struct {
	store
}

func NewAccountService(db *gorm.DB, opts Options) *AccountService {
	return &AccountService{store: newStore(db, opts)}
}

type AccountSync struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	Phone       string
	Role        string
}

// Sync creates the account if it does not exist and refreshes its contact
// fields otherwise. Balances and entitlements are never touched.
func (s *AccountService) Sync(ctx context.Context, in AccountSync) (*models.Account, error) {
	if in.ID == uuid.Nil {
		return nil, ErrAccountNotFound
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	var acc models.Account
	err := s.transact(ctx, func(tx *gorm.DB) error {
		err := tx.First(&acc, "id = ?", in.ID).Error
		if err == nil {
			return tx.Model(&acc).Updates(map[string]interface{}{
				"display_name": in.DisplayName,
				"email":        in.Email,
				"phone":        in.Phone,
				"role":         role,
				"updated_at":   s.now(),
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		acc = models.Account{
			ID:          in.ID,
			DisplayName: in.DisplayName,
			Email:       in.Email,
			Phone:       in.Phone,
			Role:        role,
		}
		return tx.Create(&acc).Error
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		return notFound(db.First(&acc, "id = ?", id).Error, ErrAccountNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// IsAdmin reports whether the account carries the admin role.
func (s *AccountService) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return acc.Role == models.RoleAdmin, nil
}

func loadAccount(tx *gorm.DB, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	if err := tx.First(&acc, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &acc, nil
}

// lockAccount loads the account row with FOR UPDATE where the dialect supports it.
func lockAccount(tx *gorm.DB, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &acc, nil
}
