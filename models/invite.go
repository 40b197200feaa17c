package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a one-time signup code bound to an email address.
type Invite struct {
	ID        uuid.UUID  `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Code      string     `json:"code" db:"code" gorm:"column:code;type:text;not null;uniqueIndex:idx_invite_code"`
	Email     string     `json:"email" db:"email" gorm:"column:email;type:text;not null;index:idx_invite_email"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by" gorm:"column:created_by;type:uuid"`
	IsActive  bool       `json:"is_active" db:"is_active" gorm:"column:is_active;not null;default:true"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at" gorm:"column:expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at" gorm:"column:used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"column:created_at;not null;autoCreateTime"`
}

// Status is the display status used by the admin list.
func (i *Invite) Status(now time.Time) string {
	switch {
	case i.UsedAt != nil:
		return "used"
	case !i.IsActive:
		return "inactive"
	case i.ExpiresAt != nil && !now.Before(*i.ExpiresAt):
		return "expired"
	}
	return "active"
}
