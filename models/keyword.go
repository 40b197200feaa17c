package models

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is a canonical keyword catalog entry. Keywords are stored lowercase.
type Keyword struct {
	ID        uuid.UUID  `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Keyword   string     `json:"keyword" db:"keyword" gorm:"column:keyword;type:text;not null;uniqueIndex:idx_keyword_unique"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by" gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"column:created_at;not null;autoCreateTime"`

	// Flagged is set by the moderation filter when listing; never persisted.
	Flagged bool `json:"flagged" gorm:"-"`
}

// Genre is an allow-listed genre. Only admins add genres.
type Genre struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Genre     string    `json:"genre" db:"genre" gorm:"column:genre;type:text;not null;uniqueIndex:idx_genre_unique"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at;not null;autoCreateTime"`
}

// Institution is a school that projects and people belong to.
type Institution struct {
	ID              uuid.UUID `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	InstitutionName string    `json:"institutionname" db:"institutionname" gorm:"column:institutionname;type:text;not null;uniqueIndex:idx_institution_name_unique"`
}
