package models

import "fmt"

// TagKind identifies which tag set of a project a value belongs to.
type TagKind string

const (
	KindKeyword    TagKind = "keyword"
	KindGenre      TagKind = "genre"
	KindCreator    TagKind = "creator"
	KindInstructor TagKind = "instructor"
	KindTech       TagKind = "tech"
)

// ParseTagKind accepts the singular or plural spelling used in URLs.
func ParseTagKind(s string) (TagKind, error) {
	switch s {
	case "keyword", "keywords":
		return KindKeyword, nil
	case "genre", "genres":
		return KindGenre, nil
	case "creator", "creators":
		return KindCreator, nil
	case "instructor", "instructors":
		return KindInstructor, nil
	case "tech", "techused":
		return KindTech, nil
	}
	return "", fmt.Errorf("unknown tag kind %q", s)
}

// Role is the capacity in which a person is linked to a project.
type Role string

const (
	RoleCreator    Role = "creator"
	RoleInstructor Role = "instructor"
)

// Role maps person-valued tag kinds onto association roles.
func (k TagKind) Role() (Role, bool) {
	switch k {
	case KindCreator:
		return RoleCreator, true
	case KindInstructor:
		return RoleInstructor, true
	}
	return "", false
}
