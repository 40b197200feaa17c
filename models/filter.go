package models

import "strings"

// ProjectFilter narrows the project listing. Empty fields match everything.
type ProjectFilter struct {
	Title       string   `json:"title,omitempty"`
	Creator     string   `json:"creator,omitempty"`
	Institution string   `json:"institution,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Genre       string   `json:"genre,omitempty"`
}

// Match applies the filter to a project with members and institution loaded.
// Title and creator match case-insensitive substrings, institution matches the
// whole name case-insensitively, keywords match any-of and genre is exact.
func (f ProjectFilter) Match(p *Project) bool {
	if f.Title != "" && !containsFold(p.Title, f.Title) {
		return false
	}
	if f.Institution != "" && !strings.EqualFold(p.InstitutionName(), f.Institution) {
		return false
	}
	if f.Genre != "" && !ContainsTag(p.Genres, f.Genre) {
		return false
	}
	if len(f.Keywords) > 0 {
		found := false
		for _, k := range f.Keywords {
			if ContainsTag(p.Keywords, strings.ToLower(k)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Creator != "" {
		found := false
		for _, name := range p.MemberNames(RoleCreator) {
			if containsFold(name, f.Creator) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
