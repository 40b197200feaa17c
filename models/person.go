package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType values stored on people.user_type.
const (
	UserTypeStudent    = "student"
	UserTypeInstructor = "instructor"
	UserTypeAdmin      = "admin"
)

// Person is a named member of the archive. Name is the join key used to
// resolve creator and instructor tags and is unique case-insensitively.
type Person struct {
	ID               uuid.UUID  `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	UserID           *uuid.UUID `json:"user_id,omitempty" db:"user_id" gorm:"column:user_id;type:uuid;uniqueIndex:idx_people_user_id"`
	Email            string     `json:"email" db:"email" gorm:"column:email;type:text;not null;uniqueIndex:idx_people_email"`
	Name             string     `json:"name" db:"name" gorm:"column:name;type:text;not null"`
	InstitutionID    *uuid.UUID `json:"institution_id,omitempty" db:"institution_id" gorm:"column:institution_id;type:uuid"`
	InstitutionOther *string    `json:"institution_other,omitempty" db:"institution_other" gorm:"column:institution_other;type:text"`
	UserType         string     `json:"user_type" db:"user_type" gorm:"column:user_type;type:text;not null;default:'student'"`
}

// IsAdmin reports whether the person has the admin user type.
func (p *Person) IsAdmin() bool {
	return p != nil && p.UserType == UserTypeAdmin
}

// BeforeSave stores names trimmed so they match the LOWER(TRIM(name)) lookup index.
func (p *Person) BeforeSave(*gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	return nil
}

// PeopleProject links a person to a project under a role.
type PeopleProject struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id" gorm:"column:project_id;type:uuid;not null;index:idx_people_project_project_id;uniqueIndex:idx_people_project_unique"`
	PersonID  uuid.UUID `json:"person_id" db:"person_id" gorm:"column:person_id;type:uuid;not null;uniqueIndex:idx_people_project_unique"`
	Role      Role      `json:"role" db:"role" gorm:"column:role;type:text;not null;uniqueIndex:idx_people_project_unique"`

	Person *Person `json:"person,omitempty" gorm:"foreignKey:PersonID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName keeps the original junction table name.
func (PeopleProject) TableName() string {
	return "people_projects"
}
