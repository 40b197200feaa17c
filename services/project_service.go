package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

const maxTransfers = 4

// ProjectStore is the record store surface the project service uses.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type Syncer interface {
	Synchronize(ctx context.Context, projectID uuid.UUID, creators, instructors []string) (relations.Report, error)
}

// ProjectInput is a new submission.
type ProjectInput struct {
	Title            string     `json:"title" validate:"max=200"`
	BriefDescription string     `json:"briefdescription" validate:"max=500"`
	FullDescription  string     `json:"fulldescription" validate:"max=20000"`
	InstitutionID    *uuid.UUID `json:"institution_id"`
	ClassNumber      string     `json:"classnumber" validate:"max=50"`
	CourseName       string     `json:"coursename" validate:"max=200"`
	Assignment       string     `json:"assignment" validate:"max=200"`
	Term             string     `json:"term" validate:"max=50"`
	Year             int        `json:"year" validate:"omitempty,min=1970,max=2100"`
	VideoLink        string     `json:"videolink" validate:"omitempty,url"`
	DownloadLink     string     `json:"downloadlink" validate:"omitempty,url"`
	RepoLink         string     `json:"repolink" validate:"omitempty,url"`
	Keywords         []string   `json:"keywords"`
	Genres           []string   `json:"genres"`
	TechUsed         []string   `json:"techused"`
	Creators         []string   `json:"creators" validate:"dive,max=200"`
	Instructors      []string   `json:"instructors"`
}

// Image is an uploaded file before it reaches the object store.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ProjectView is a project with its people and institution spelled out.
type ProjectView struct {
	models.Project
	Creators        []string `json:"creators"`
	Instructors     []string `json:"instructors"`
	InstitutionName string   `json:"institutionname,omitempty"`
}

func NewProjectView(p *models.Project) ProjectView {
	return ProjectView{
		Project:         *p,
		Creators:        p.MemberNames(models.RoleCreator),
		Instructors:     p.MemberNames(models.RoleInstructor),
		InstitutionName: p.InstitutionName(),
	}
}

// CreateResult is the stored project plus member sync warnings.
type CreateResult struct {
	Project  ProjectView      `json:"project"`
	Sync     relations.Report `json:"sync"`
	Warnings []string         `json:"warnings,omitempty"`
}

type ProjectService struct {
	store   ProjectStore
	gate    *taxonomy.Gate
	sync    Syncer
	objects storage.ObjectStore
	prepare func([]byte) ([]byte, string, error)
	now     func() time.Time
	logger  zerolog.Logger
}

type ProjectOption func(*ProjectService)

// WithImagePreparer re-encodes every image before upload.
func WithImagePreparer(f func([]byte) ([]byte, string, error)) ProjectOption {
	return func(s *ProjectService) { s.prepare = f }
}

func WithClock(now func() time.Time) ProjectOption {
	return func(s *ProjectService) { s.now = now }
}

func NewProjectService(store ProjectStore, gate *taxonomy.Gate, syncer Syncer, objects storage.ObjectStore, opts ...ProjectOption) *ProjectService {
	s := &ProjectService{
		store:   store,
		gate:    gate,
		sync:    syncer,
		objects: objects,
		now:     time.Now,
		logger:  log.With().Str("component", "projectService").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]ProjectView, error) {
	projects, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for i := range projects {
		views = append(views, NewProjectView(&projects[i]))
	}
	return views, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*ProjectView, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewProjectView(p)
	return &view, nil
}

// Create admits every tag through the gate, stores the images, inserts the row
// and links creators and instructors. userID is the auth subject recorded as
// created_by; uuid.Nil records nothing.
func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, confirm prompt.Prompter, in ProjectInput, images []Image) (*CreateResult, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, editor.ErrTitleRequired
	}
	if len(nonEmpty(in.Creators)) == 0 {
		return nil, editor.ErrCreatorRequired
	}
	if len(images) > models.MaxImages {
		return nil, editor.ErrImageLimit
	}

	gate := s.gate
	var createdBy *uuid.UUID
	if userID != uuid.Nil {
		gate = gate.For(userID)
		createdBy = &userID
	}

	// Read-only checks first.
	genres, err := gate.AdmitAll(ctx, nil, models.KindGenre, nonEmpty(in.Genres))
	if err != nil {
		return nil, err
	}
	tech, err := gate.AdmitAll(ctx, nil, models.KindTech, nonEmpty(in.TechUsed))
	if err != nil {
		return nil, err
	}
	creators, err := gate.AdmitAll(ctx, nil, models.KindCreator, nonEmpty(in.Creators))
	if err != nil {
		return nil, err
	}
	instructors, err := gate.AdmitAll(ctx, nil, models.KindInstructor, nonEmpty(in.Instructors))
	if err != nil {
		return nil, err
	}
	// Keywords last: admitting a new one writes to the catalog.
	keywords, err := gate.AdmitAll(ctx, confirm, models.KindKeyword, nonEmpty(in.Keywords))
	if err != nil {
		return nil, err
	}

	urls, keys, err := s.uploadAll(ctx, images)
	if err != nil {
		s.removeAll(ctx, keys)
		return nil, err
	}

	p := &models.Project{
		Title:            strings.TrimSpace(in.Title),
		BriefDescription: models.OptionalString(in.BriefDescription),
		FullDescription:  models.OptionalString(in.FullDescription),
		InstitutionID:    in.InstitutionID,
		ClassNumber:      models.OptionalString(in.ClassNumber),
		CourseName:       models.OptionalString(in.CourseName),
		Assignment:       models.OptionalString(in.Assignment),
		Term:             strings.TrimSpace(in.Term),
		Year:             in.Year,
		VideoLink:        models.OptionalString(in.VideoLink),
		DownloadLink:     models.OptionalString(in.DownloadLink),
		RepoLink:         models.OptionalString(in.RepoLink),
		ImageURLs:        models.NewTagSlice(urls),
		Keywords:         models.NewTagSlice(keywords),
		Genres:           models.NewTagSlice(genres),
		TechUsed:         models.NewTagSlice(tech),
		CreatedBy:        createdBy,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		s.removeAll(ctx, keys)
		return nil, fmt.Errorf("create project: %w", err)
	}

	report, err := s.sync.Synchronize(ctx, p.ID, creators, instructors)
	if err != nil {
		s.logger.Error().Err(err).Str("projectID", p.ID.String()).Msg("project stored without members")
		return nil, fmt.Errorf("link members: %w", err)
	}

	saved, err := s.store.GetProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload project: %w", err)
	}
	s.logger.Info().Str("projectID", p.ID.String()).Int("images", len(urls)).Msg("project created")
	return &CreateResult{
		Project:  NewProjectView(saved),
		Sync:     report,
		Warnings: report.Warnings(),
	}, nil
}

// uploadAll stores images concurrently and returns their URLs in input order.
// keys lists every object stored, also on error.
func (s *ProjectService) uploadAll(ctx context.Context, images []Image) (urls, keys []string, err error) {
	if len(images) == 0 {
		return []string{}, nil, nil
	}
	now := s.now()
	urls = make([]string, len(images))
	stored := make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTransfers)
	for i, img := range images {
		g.Go(func() error {
			data, contentType := img.Data, img.ContentType
			if s.prepare != nil {
				prepared, ct, err := s.prepare(data)
				if err != nil {
					return fmt.Errorf("prepare %s: %w", img.Name, err)
				}
				data, contentType = prepared, ct
			}
			key := storage.KeyFor(now, i, img.Name, contentType)
			url, err := s.objects.Upload(gctx, key, contentType, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Name, err)
			}
			urls[i], stored[i] = url, key
			return nil
		})
	}
	err = g.Wait()
	return urls, nonEmpty(stored), err
}

// removeAll deletes objects best-effort; failures are only logged.
func (s *ProjectService) removeAll(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.objects.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove image")
			}
		}()
	}
	wg.Wait()
}

// Delete removes a project's images and then its row. Only admins and people
// linked to the project may delete it. Image removal failures do not stop the
// row from being deleted.
func (s *ProjectService) Delete(ctx context.Context, actor editor.Actor, id uuid.UUID) error {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && (actor.PersonID == uuid.Nil || !p.HasMember(actor.PersonID)) {
		return editor.ErrNotAuthorized
	}

	keys := make([]string, 0, len(p.ImageURLs))
	for _, u := range p.ImageURLs {
		if key := s.objects.KeyFromURL(u); key != "" {
			keys = append(keys, key)
		}
	}
	s.removeAll(ctx, keys)

	if err := s.store.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.logger.Info().Str("projectID", id.String()).Int("images", len(keys)).Msg("project deleted")
	return nil
}

func nonEmpty(values []string) []string {
	out := []string{}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
