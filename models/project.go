package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaxImages and MaxGenres bound the per-project arrays.
const (
	MaxImages = 5
	MaxGenres = 3
)

// Project is a submitted game project. Column names follow the archive's existing schema.
type Project struct {
	ID               uuid.UUID                   `json:"id" db:"id" gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Title            string                      `json:"title" db:"title" gorm:"column:title;type:text;not null"`
	BriefDescription *string                     `json:"briefdescription,omitempty" db:"briefdescription" gorm:"column:briefdescription;type:text"`
	FullDescription  *string                     `json:"fulldescription,omitempty" db:"fulldescription" gorm:"column:fulldescription;type:text"`
	InstitutionID    *uuid.UUID                  `json:"institution_id,omitempty" db:"institution_id" gorm:"column:institution_id;type:uuid;index:idx_project_institution_id"`
	ClassNumber      *string                     `json:"classnumber,omitempty" db:"classnumber" gorm:"column:classnumber;type:text"`
	CourseName       *string                     `json:"coursename,omitempty" db:"coursename" gorm:"column:coursename;type:text"`
	Assignment       *string                     `json:"assignment,omitempty" db:"assignment" gorm:"column:assignment;type:text"`
	Term             string                      `json:"term" db:"term" gorm:"column:term;type:text;not null;default:''"`
	Year             int                         `json:"year" db:"year" gorm:"column:year;type:integer;not null;default:0"`
	VideoLink        *string                     `json:"videolink,omitempty" db:"videolink" gorm:"column:videolink;type:text"`
	DownloadLink     *string                     `json:"downloadlink,omitempty" db:"downloadlink" gorm:"column:downloadlink;type:text"`
	RepoLink         *string                     `json:"repolink,omitempty" db:"repolink" gorm:"column:repolink;type:text"`
	ImageURLs        datatypes.JSONSlice[string] `json:"image_urls" db:"image_urls" gorm:"column:image_urls;not null;default:'[]'"`
	Keywords         datatypes.JSONSlice[string] `json:"keywords" db:"keywords" gorm:"column:keywords;not null;default:'[]'"`
	Genres           datatypes.JSONSlice[string] `json:"genres" db:"genres" gorm:"column:genres;not null;default:'[]'"`
	TechUsed         datatypes.JSONSlice[string] `json:"techused" db:"techused" gorm:"column:techused;not null;default:'[]'"`
	CreatedBy        *uuid.UUID                  `json:"created_by,omitempty" db:"created_by" gorm:"column:created_by;type:uuid"`
	CreatedAt        time.Time                   `json:"created_at" db:"created_at" gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt        time.Time                   `json:"updated_at" db:"updated_at" gorm:"column:updated_at;not null;autoUpdateTime"`

	Institution *Institution    `json:"institution,omitempty" gorm:"foreignKey:InstitutionID;references:ID"`
	Members     []PeopleProject `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// Tags returns a copy of the array that backs the given tag kind. Creator and
// instructor names are derived from Members.
func (p *Project) Tags(kind TagKind) []string {
	switch kind {
	case KindKeyword:
		return cloneStrings(p.Keywords)
	case KindGenre:
		return cloneStrings(p.Genres)
	case KindTech:
		return cloneStrings(p.TechUsed)
	case KindCreator:
		return p.MemberNames(RoleCreator)
	case KindInstructor:
		return p.MemberNames(RoleInstructor)
	}
	return nil
}

// SetTags replaces a catalog-backed array. It reports false for kinds that are
// not stored on the project row.
func (p *Project) SetTags(kind TagKind, values []string) bool {
	switch kind {
	case KindKeyword:
		p.Keywords = NewTagSlice(values)
	case KindGenre:
		p.Genres = NewTagSlice(values)
	case KindTech:
		p.TechUsed = NewTagSlice(values)
	default:
		return false
	}
	return true
}

// MemberNames lists the display names of people linked under role, in link order.
func (p *Project) MemberNames(role Role) []string {
	names := []string{}
	for _, m := range p.Members {
		if m.Role == role && m.Person != nil {
			names = append(names, m.Person.Name)
		}
	}
	return names
}

// HasMember reports whether personID is linked to the project in any role.
func (p *Project) HasMember(personID uuid.UUID) bool {
	for _, m := range p.Members {
		if m.PersonID == personID {
			return true
		}
	}
	return false
}

// InstitutionName returns the resolved institution name or "".
func (p *Project) InstitutionName() string {
	if p.Institution == nil {
		return ""
	}
	return p.Institution.InstitutionName
}

// Normalize guarantees the array columns are never written as NULL.
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.ImageURLs = NewTagSlice(p.ImageURLs)
	p.Keywords = NewTagSlice(p.Keywords)
	p.Genres = NewTagSlice(p.Genres)
	p.TechUsed = NewTagSlice(p.TechUsed)
}

// Clone returns a deep copy of the row fields and members.
func (p *Project) Clone() *Project {
	c := *p
	c.ImageURLs = NewTagSlice(p.ImageURLs)
	c.Keywords = NewTagSlice(p.Keywords)
	c.Genres = NewTagSlice(p.Genres)
	c.TechUsed = NewTagSlice(p.TechUsed)
	c.BriefDescription = cloneString(p.BriefDescription)
	c.FullDescription = cloneString(p.FullDescription)
	c.ClassNumber = cloneString(p.ClassNumber)
	c.CourseName = cloneString(p.CourseName)
	c.Assignment = cloneString(p.Assignment)
	c.VideoLink = cloneString(p.VideoLink)
	c.DownloadLink = cloneString(p.DownloadLink)
	c.RepoLink = cloneString(p.RepoLink)
	if p.Institution != nil {
		inst := *p.Institution
		c.Institution = &inst
	}
	if p.Members != nil {
		c.Members = make([]PeopleProject, len(p.Members))
		for i, m := range p.Members {
			c.Members[i] = m
			if m.Person != nil {
				person := *m.Person
				c.Members[i].Person = &person
			}
		}
	}
	return &c
}

// NewTagSlice copies values into a non-nil JSON slice.
func NewTagSlice(values []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], len(values))
	copy(out, values)
	return out
}

// ContainsTag reports whether values holds tag (case-sensitive).
func ContainsTag(values []string, tag string) bool {
	for _, v := range values {
		if v == tag {
			return true
		}
	}
	return false
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// OptionalString maps "" (after trimming) to nil.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
