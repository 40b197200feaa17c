package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"gorm.io/gorm"
)

type InviteRepo struct {
	db *gorm.DB
}

func NewInviteRepo(db *gorm.DB) *InviteRepo {
	return &InviteRepo{db}
}

func (r *InviteRepo) Add(ctx context.Context, invite *models.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

// FindAll returns invites newest first.
func (r *InviteRepo) FindAll(ctx context.Context) ([]models.Invite, error) {
	invites := []models.Invite{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&invites).Error
	return invites, err
}

func (r *InviteRepo) FindByCode(ctx context.Context, code string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).First(&invite, "code = ?", code).Error; err != nil {
		return nil, notFound("invite", code, err)
	}
	return &invite, nil
}

func (r *InviteRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Invite{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invite %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *InviteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Invite{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invite %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Redeem marks the invite used and inserts person in one transaction. The
// used_at IS NULL guard makes a second redemption fail with errs.ErrConflict.
func (r *InviteRepo) Redeem(ctx context.Context, inviteID uuid.UUID, person *models.Person, usedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invite{}).
			Where("id = ? AND used_at IS NULL", inviteID).
			Update("used_at", usedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Invite{}).Where("id = ?", inviteID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("invite %s: %w", inviteID, errs.ErrNotFound)
			}
			return fmt.Errorf("invite %s already used: %w", inviteID, errs.ErrConflict)
		}
		if person.UserType == "" {
			person.UserType = models.UserTypeStudent
		}
		return tx.Create(person).Error
	})
}
