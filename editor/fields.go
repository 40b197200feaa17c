package editor

import (
	"strconv"

	"github.com/horizons-db/archive-backend/models"
)

// FieldKey identifies a field of the project view independent of its label.
type FieldKey string

const (
	FieldTitle            FieldKey = "title"
	FieldBriefDescription FieldKey = "briefdescription"
	FieldFullDescription  FieldKey = "fulldescription"
	FieldInstitution      FieldKey = "institution"
	FieldClassNumber      FieldKey = "classnumber"
	FieldCourseName       FieldKey = "coursename"
	FieldAssignment       FieldKey = "assignment"
	FieldTerm             FieldKey = "term"
	FieldYear             FieldKey = "year"
	FieldVideoLink        FieldKey = "videolink"
	FieldDownloadLink     FieldKey = "downloadlink"
	FieldRepoLink         FieldKey = "repolink"
	FieldKeywords         FieldKey = "keywords"
	FieldGenres           FieldKey = "genres"
	FieldTech             FieldKey = "techused"
	FieldCreators         FieldKey = "creators"
	FieldInstructors      FieldKey = "instructors"
	FieldImages           FieldKey = "images"
)

// FieldKind tells a client which control to render.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindLongText FieldKind = "longtext"
	KindNumber   FieldKind = "number"
	KindLink     FieldKind = "link"
	KindChoice   FieldKind = "choice"
	KindTags     FieldKind = "tags"
	KindImages   FieldKind = "images"
)

// Field is one entry of the view model.
type Field struct {
	Key      FieldKey       `json:"key"`
	Label    string         `json:"label"`
	Kind     FieldKind      `json:"kind"`
	Editable bool           `json:"editable"`
	Value    string         `json:"value,omitempty"`
	Values   []string       `json:"values,omitempty"`
	TagKind  models.TagKind `json:"tag_kind,omitempty"`
}

// Fields renders the project in a fixed order: static values while Viewing,
// draft values while Editing.
func (s *Session) Fields() []Field {
	editing := s.state == Editing
	var src *Draft
	if editing {
		src = s.draft
	} else {
		src = newDraft(s.original)
	}
	institution := s.original.InstitutionName()
	if editing {
		institution = ""
		if src.InstitutionID != nil {
			institution = src.InstitutionID.String()
		}
	}
	year := ""
	if src.Year != 0 {
		year = strconv.Itoa(src.Year)
	}
	text := func(key FieldKey, label string, kind FieldKind, value string) Field {
		return Field{Key: key, Label: label, Kind: kind, Editable: editing, Value: value}
	}
	tags := func(key FieldKey, label string, kind models.TagKind, values []string) Field {
		return Field{Key: key, Label: label, Kind: KindTags, Editable: editing, Values: values, TagKind: kind}
	}
	images := src.ImageURLs
	if editing {
		images = removeAll(src.ImageURLs, src.ToDelete)
	}
	return []Field{
		text(FieldTitle, "Title", KindText, src.Title),
		tags(FieldCreators, "Creators", models.KindCreator, src.Creators),
		tags(FieldInstructors, "Instructors", models.KindInstructor, src.Instructors),
		text(FieldInstitution, "Institution", KindChoice, institution),
		text(FieldClassNumber, "Class Number", KindText, src.ClassNumber),
		text(FieldCourseName, "Course Name", KindText, src.CourseName),
		text(FieldAssignment, "Assignment", KindText, src.Assignment),
		text(FieldTerm, "Term", KindText, src.Term),
		text(FieldYear, "Year", KindNumber, year),
		tags(FieldGenres, "Genres", models.KindGenre, src.Genres),
		tags(FieldKeywords, "Keywords", models.KindKeyword, src.Keywords),
		tags(FieldTech, "Tech Used", models.KindTech, src.TechUsed),
		text(FieldBriefDescription, "Brief Description", KindLongText, src.BriefDescription),
		text(FieldFullDescription, "Full Description", KindLongText, src.FullDescription),
		text(FieldVideoLink, "Video", KindLink, src.VideoLink),
		text(FieldDownloadLink, "Download", KindLink, src.DownloadLink),
		text(FieldRepoLink, "Repository", KindLink, src.RepoLink),
		{Key: FieldImages, Label: "Images", Kind: KindImages, Editable: editing, Values: images},
	}
}

func removeAll(values, drop []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !models.ContainsTag(drop, v) {
			out = append(out, v)
		}
	}
	return out
}
