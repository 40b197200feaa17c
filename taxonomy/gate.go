// Package taxonomy decides which tag strings a project may carry. Keywords are
// coined lazily after confirmation, genres come from a fixed allow-list and
// creator/instructor names must resolve to a person.
package taxonomy

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/models"
)

// Store is the catalog access the gate needs.
type Store interface {
	KeywordExists(ctx context.Context, keyword string) (bool, error)
	InsertKeyword(ctx context.Context, keyword string, createdBy *uuid.UUID) error
	ListKeywords(ctx context.Context) ([]models.Keyword, error)
	DeleteKeyword(ctx context.Context, keyword string) error

	GenreExists(ctx context.Context, genre string) (bool, error)
	InsertGenre(ctx context.Context, genre string) error
	ListGenres(ctx context.Context) ([]models.Genre, error)
	DeleteGenre(ctx context.Context, genre string) error

	FindPeopleByName(ctx context.Context, name string) ([]models.Person, error)

	// ProjectsWithTag returns every project whose kind array contains value.
	ProjectsWithTag(ctx context.Context, kind models.TagKind, value string) ([]models.Project, error)
	// UpdateProjectTags overwrites one array column of a project.
	UpdateProjectTags(ctx context.Context, projectID uuid.UUID, kind models.TagKind, values []string) error
}

// Gate validates candidate tags against the catalogs.
type Gate struct {
	store     Store
	logger    zerolog.Logger
	createdBy *uuid.UUID
	filter    ProfanityFilter
}

type Option func(*Gate)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithCreatedBy records who coined new keywords.
func WithCreatedBy(id uuid.UUID) Option {
	return func(g *Gate) {
		g.createdBy = &id
	}
}

// WithProfanityFilter overrides the filter used to flag catalog keywords.
func WithProfanityFilter(f ProfanityFilter) Option {
	return func(g *Gate) { g.filter = f }
}

func New(store Store, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		logger: log.With().Str("component", "taxonomy").Logger(),
		filter: defaultFilter{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// For returns a copy of the gate that attributes coined keywords to userID.
func (g *Gate) For(userID uuid.UUID) *Gate {
	c := *g
	c.createdBy = &userID
	return &c
}
