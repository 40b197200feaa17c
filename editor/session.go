// Package editor holds the view/edit state of one project record and turns a
// draft into storage operations, a row update and a relation sync.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/taxonomy"
)

type State int

const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

var (
	ErrNotAuthorized   = errors.New("not allowed to edit this project")
	ErrNotEditing      = errors.New("project is not being edited")
	ErrAlreadyEditing  = errors.New("project is already being edited")
	ErrTitleRequired   = errors.New("title is required")
	ErrCreatorRequired = errors.New("at least one creator is required")
	ErrImageLimit      = fmt.Errorf("a project can have at most %d images", models.MaxImages)
	ErrUnknownField    = errors.New("unknown field")
	ErrNotScalarField  = errors.New("field is edited through tags or images")
	ErrUnknownImage    = errors.New("image is not part of this project")
)

// Store loads and saves project rows.
type Store interface {
	// GetProject returns the project with members and institution loaded.
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// UpdateProject writes every scalar and array column of p if the stored
	// updated_at still equals expected, then sets p.UpdatedAt.
	UpdateProject(ctx context.Context, p *models.Project, expected time.Time) error
}

// Syncer rewrites creator and instructor links.
type Syncer interface {
	Synchronize(ctx context.Context, projectID uuid.UUID, creators, instructors []string) (relations.Report, error)
}

// Objects is the part of the object store the editor uses.
type Objects interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
	KeyFromURL(u string) string
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Store   Store
	Gate    *taxonomy.Gate
	Sync    Syncer
	Objects Objects
	// Prepare optionally re-encodes an image at staging time and returns the
	// bytes and content type to upload.
	Prepare func(data []byte) ([]byte, string, error)
	Now     func() time.Time
	Logger  *zerolog.Logger
}

// Actor is the person asking to edit. UserID is the auth subject recorded
// on catalog entries the actor coins.
type Actor struct {
	UserID   uuid.UUID
	PersonID uuid.UUID
	IsAdmin  bool
}

// Session is the edit state of one project for one user. It is not safe for
// concurrent use.
type Session struct {
	deps      Deps
	projectID uuid.UUID
	state     State
	original  *models.Project
	draft     *Draft
	actor     Actor
	logger    zerolog.Logger
}

// New loads the project and starts in Viewing.
func New(ctx context.Context, deps Deps, projectID uuid.UUID) (*Session, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		l := log.With().Str("component", "editor").Logger()
		deps.Logger = &l
	}
	p, err := deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Session{
		deps:      deps,
		projectID: projectID,
		state:     Viewing,
		original:  p,
		logger:    deps.Logger.With().Str("projectID", projectID.String()).Logger(),
	}, nil
}

func (s *Session) ProjectID() uuid.UUID { return s.projectID }
func (s *Session) State() State         { return s.state }

// Project returns a copy of the last loaded or saved record.
func (s *Session) Project() *models.Project { return s.original.Clone() }

// Draft returns a copy of the pending edits, or nil when Viewing.
func (s *Session) Draft() *Draft {
	if s.draft == nil {
		return nil
	}
	return s.draft.clone()
}

// CanEdit reports whether actor may edit the loaded project.
func (s *Session) CanEdit(actor Actor) bool {
	return actor.IsAdmin || (actor.PersonID != uuid.Nil && s.original.HasMember(actor.PersonID))
}

// Begin reloads the record, checks authorization and seeds a draft from it.
func (s *Session) Begin(ctx context.Context, actor Actor) error {
	if s.state == Editing {
		return ErrAlreadyEditing
	}
	p, err := s.deps.Store.GetProject(ctx, s.projectID)
	if err != nil {
		return err
	}
	s.original = p
	if !s.CanEdit(actor) {
		return ErrNotAuthorized
	}
	s.actor = actor
	s.draft = newDraft(p)
	s.state = Editing
	s.logger.Debug().Str("personID", actor.PersonID.String()).Msg("edit started")
	return nil
}

// Cancel asks before discarding the draft. It reports whether the draft was
// discarded; a decline keeps the session in Editing.
func (s *Session) Cancel(ctx context.Context, confirm prompt.Prompter) (bool, error) {
	if s.state != Editing {
		return false, ErrNotEditing
	}
	ok, err := confirm.Ask(ctx, prompt.Prompt{
		Title:       "Discard changes?",
		Message:     "Your unsaved edits to this project will be lost.",
		Destructive: true,
	})
	if err != nil || !ok {
		return false, err
	}
	if keys := s.draft.uploadedKeys(); len(keys) > 0 {
		s.logger.Warn().Strs("keys", keys).Msg("discarding draft with uploaded images")
	}
	s.draft = nil
	s.state = Viewing
	return true, nil
}
