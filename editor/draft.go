package editor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/taxonomy"
)

// Upload is a staged image. Key and URL are set once it has been stored.
type Upload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Key         string `json:"key,omitempty"`
	URL         string `json:"url,omitempty"`

	data []byte
}

// Draft is the not-yet-saved state of a project under edit.
type Draft struct {
	Title            string     `json:"title"`
	BriefDescription string     `json:"briefdescription"`
	FullDescription  string     `json:"fulldescription"`
	InstitutionID    *uuid.UUID `json:"institution_id,omitempty"`
	ClassNumber      string     `json:"classnumber"`
	CourseName       string     `json:"coursename"`
	Assignment       string     `json:"assignment"`
	Term             string     `json:"term"`
	Year             int        `json:"year"`
	VideoLink        string     `json:"videolink"`
	DownloadLink     string     `json:"downloadlink"`
	RepoLink         string     `json:"repolink"`

	Keywords    []string `json:"keywords"`
	Genres      []string `json:"genres"`
	TechUsed    []string `json:"techused"`
	Creators    []string `json:"creators"`
	Instructors []string `json:"instructors"`

	ImageURLs []string  `json:"image_urls"`
	ToDelete  []string  `json:"to_delete"`
	ToUpload  []*Upload `json:"to_upload"`
}

func newDraft(p *models.Project) *Draft {
	return &Draft{
		Title:            p.Title,
		BriefDescription: models.StringValue(p.BriefDescription),
		FullDescription:  models.StringValue(p.FullDescription),
		InstitutionID:    p.InstitutionID,
		ClassNumber:      models.StringValue(p.ClassNumber),
		CourseName:       models.StringValue(p.CourseName),
		Assignment:       models.StringValue(p.Assignment),
		Term:             p.Term,
		Year:             p.Year,
		VideoLink:        models.StringValue(p.VideoLink),
		DownloadLink:     models.StringValue(p.DownloadLink),
		RepoLink:         models.StringValue(p.RepoLink),
		Keywords:         p.Tags(models.KindKeyword),
		Genres:           p.Tags(models.KindGenre),
		TechUsed:         p.Tags(models.KindTech),
		Creators:         p.Tags(models.KindCreator),
		Instructors:      p.Tags(models.KindInstructor),
		ImageURLs:        append([]string{}, p.ImageURLs...),
		ToDelete:         []string{},
		ToUpload:         []*Upload{},
	}
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Keywords = append([]string{}, d.Keywords...)
	c.Genres = append([]string{}, d.Genres...)
	c.TechUsed = append([]string{}, d.TechUsed...)
	c.Creators = append([]string{}, d.Creators...)
	c.Instructors = append([]string{}, d.Instructors...)
	c.ImageURLs = append([]string{}, d.ImageURLs...)
	c.ToDelete = append([]string{}, d.ToDelete...)
	c.ToUpload = make([]*Upload, len(d.ToUpload))
	for i, u := range d.ToUpload {
		cu := *u
		c.ToUpload[i] = &cu
	}
	return &c
}

// tagSet returns a pointer to the slice backing kind.
func (d *Draft) tagSet(kind models.TagKind) (*[]string, error) {
	switch kind {
	case models.KindKeyword:
		return &d.Keywords, nil
	case models.KindGenre:
		return &d.Genres, nil
	case models.KindTech:
		return &d.TechUsed, nil
	case models.KindCreator:
		return &d.Creators, nil
	case models.KindInstructor:
		return &d.Instructors, nil
	}
	return nil, fmt.Errorf("%w: %s", taxonomy.ErrUnsupportedKind, kind)
}

// imageCount is the number of images the project will have after saving.
func (d *Draft) imageCount() int {
	n := len(d.ImageURLs) - len(d.ToDelete)
	for _, u := range d.ToUpload {
		if u.URL == "" {
			n++
		}
	}
	return n
}

func (d *Draft) uploadedKeys() []string {
	var keys []string
	for _, u := range d.ToUpload {
		if u.Key != "" {
			keys = append(keys, u.Key)
		}
	}
	return keys
}

// SetField applies a scalar edit. Year must be an integer; an empty
// institution clears it.
func (s *Session) SetField(key FieldKey, value string) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	d := s.draft
	switch key {
	case FieldTitle:
		d.Title = value
	case FieldBriefDescription:
		d.BriefDescription = value
	case FieldFullDescription:
		d.FullDescription = value
	case FieldInstitution:
		value = strings.TrimSpace(value)
		if value == "" {
			d.InstitutionID = nil
			return nil
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return fmt.Errorf("institution: %w", err)
		}
		d.InstitutionID = &id
	case FieldClassNumber:
		d.ClassNumber = value
	case FieldCourseName:
		d.CourseName = value
	case FieldAssignment:
		d.Assignment = value
	case FieldTerm:
		d.Term = value
	case FieldYear:
		value = strings.TrimSpace(value)
		if value == "" {
			d.Year = 0
			return nil
		}
		year, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("year: %q is not a number", value)
		}
		d.Year = year
	case FieldVideoLink:
		d.VideoLink = value
	case FieldDownloadLink:
		d.DownloadLink = value
	case FieldRepoLink:
		d.RepoLink = value
	case FieldKeywords, FieldGenres, FieldTech, FieldCreators, FieldInstructors, FieldImages:
		return fmt.Errorf("%w: %s", ErrNotScalarField, key)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return nil
}

// AdmitTag runs candidate through the taxonomy gate and appends it to the draft.
func (s *Session) AdmitTag(ctx context.Context, confirm prompt.Prompter, kind models.TagKind, candidate string) (string, error) {
	if s.state != Editing {
		return "", ErrNotEditing
	}
	set, err := s.draft.tagSet(kind)
	if err != nil {
		return "", err
	}
	gate := s.deps.Gate
	if s.actor.UserID != uuid.Nil {
		gate = gate.For(s.actor.UserID)
	}
	tag, err := gate.Admit(ctx, confirm, kind, candidate, *set)
	if err != nil {
		return "", err
	}
	*set = append(*set, tag)
	return tag, nil
}

// RemoveTag drops value from the draft's kind set.
func (s *Session) RemoveTag(kind models.TagKind, value string) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	set, err := s.draft.tagSet(kind)
	if err != nil {
		return err
	}
	*set = taxonomy.Remove(kind, value, *set)
	return nil
}

// StageUpload queues a new image. It is refused when the project would end up
// with more than models.MaxImages images.
func (s *Session) StageUpload(name, contentType string, data []byte) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	if s.draft.imageCount()+1 > models.MaxImages {
		return ErrImageLimit
	}
	if s.deps.Prepare != nil {
		prepared, ct, err := s.deps.Prepare(data)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", name, err)
		}
		data, contentType = prepared, ct
	}
	s.draft.ToUpload = append(s.draft.ToUpload, &Upload{
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		data:        data,
	})
	return nil
}

// UnstageUpload drops a queued image. An image already stored by an earlier
// save attempt is marked for removal instead.
func (s *Session) UnstageUpload(name string) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	for i, u := range s.draft.ToUpload {
		if u.Name != name {
			continue
		}
		if u.URL == "" {
			s.draft.ToUpload = append(s.draft.ToUpload[:i], s.draft.ToUpload[i+1:]...)
			return nil
		}
		if !models.ContainsTag(s.draft.ToDelete, u.URL) {
			s.draft.ToDelete = append(s.draft.ToDelete, u.URL)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownImage, name)
}

// dropUploaded forgets the staged upload stored at url.
func (d *Draft) dropUploaded(url string) {
	kept := d.ToUpload[:0]
	for _, u := range d.ToUpload {
		if u.URL != url {
			kept = append(kept, u)
		}
	}
	d.ToUpload = kept
}

// StageDelete marks an existing image for removal on save.
func (s *Session) StageDelete(url string) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	if !models.ContainsTag(s.draft.ImageURLs, url) {
		return fmt.Errorf("%w: %s", ErrUnknownImage, url)
	}
	if !models.ContainsTag(s.draft.ToDelete, url) {
		s.draft.ToDelete = append(s.draft.ToDelete, url)
	}
	return nil
}

// UnstageDelete keeps an image that was marked for removal.
func (s *Session) UnstageDelete(url string) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	if !models.ContainsTag(s.draft.ToDelete, url) {
		return nil
	}
	if s.draft.imageCount()+1 > models.MaxImages {
		return ErrImageLimit
	}
	s.draft.ToDelete = removeString(s.draft.ToDelete, url)
	return nil
}

func removeString(values []string, v string) []string {
	out := make([]string, 0, len(values))
	for _, x := range values {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
