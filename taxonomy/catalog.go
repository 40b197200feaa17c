package taxonomy

import (
	"context"
	"fmt"

	goaway "github.com/TwiN/go-away"

	"github.com/horizons-db/archive-backend/models"
)

// ProfanityFilter flags catalog keywords for moderation.
type ProfanityFilter interface {
	IsProfane(s string) bool
}

type defaultFilter struct{}

func (defaultFilter) IsProfane(s string) bool { return goaway.IsProfane(s) }

// IsNewKeyword reports whether the normalized candidate is absent from the catalog.
func (g *Gate) IsNewKeyword(ctx context.Context, candidate string) (bool, error) {
	exists, err := g.store.KeywordExists(ctx, Normalize(models.KindKeyword, candidate))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (g *Gate) IsValidGenre(ctx context.Context, candidate string) (bool, error) {
	return g.store.GenreExists(ctx, Normalize(models.KindGenre, candidate))
}

// PersonExists reports whether exactly one person carries name.
func (g *Gate) PersonExists(ctx context.Context, name string) (bool, error) {
	people, err := g.store.FindPeopleByName(ctx, Normalize(models.KindCreator, name))
	if err != nil {
		return false, err
	}
	return len(people) == 1, nil
}

// Keywords lists the keyword catalog with the moderation flag derived.
func (g *Gate) Keywords(ctx context.Context) ([]models.Keyword, error) {
	keywords, err := g.store.ListKeywords(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keywords {
		keywords[i].Flagged = g.filter.IsProfane(keywords[i].Keyword)
	}
	return keywords, nil
}

func (g *Gate) Genres(ctx context.Context) ([]models.Genre, error) {
	return g.store.ListGenres(ctx)
}

// AddGenre extends the genre allow-list. Re-adding an existing genre is a no-op.
func (g *Gate) AddGenre(ctx context.Context, name string) (string, error) {
	genre := Normalize(models.KindGenre, name)
	if genre == "" {
		return "", reject(models.KindGenre, name, ErrEmptyTag)
	}
	exists, err := g.store.GenreExists(ctx, genre)
	if err != nil {
		return "", err
	}
	if exists {
		return genre, nil
	}
	if err := g.store.InsertGenre(ctx, genre); err != nil {
		return "", fmt.Errorf("insert genre %q: %w", genre, err)
	}
	g.logger.Info().Str("genre", genre).Msg("genre added to catalog")
	return genre, nil
}

// DeleteFromCatalog strips value from every project that carries it and only
// then deletes the catalog row, so no project ever references a missing entry.
// It returns the number of projects touched.
func (g *Gate) DeleteFromCatalog(ctx context.Context, kind models.TagKind, value string) (int, error) {
	if kind != models.KindKeyword && kind != models.KindGenre {
		return 0, reject(kind, value, ErrUnsupportedKind)
	}
	value = Normalize(kind, value)
	if value == "" {
		return 0, reject(kind, value, ErrEmptyTag)
	}

	projects, err := g.store.ProjectsWithTag(ctx, kind, value)
	if err != nil {
		return 0, fmt.Errorf("find projects with %s %q: %w", kind, value, err)
	}
	touched := 0
	for i := range projects {
		p := &projects[i]
		stripped := Remove(kind, value, p.Tags(kind))
		if err := g.store.UpdateProjectTags(ctx, p.ID, kind, stripped); err != nil {
			return touched, fmt.Errorf("strip %s %q from project %s: %w", kind, value, p.ID, err)
		}
		touched++
	}

	if kind == models.KindKeyword {
		err = g.store.DeleteKeyword(ctx, value)
	} else {
		err = g.store.DeleteGenre(ctx, value)
	}
	if err != nil {
		return touched, fmt.Errorf("delete %s %q: %w", kind, value, err)
	}
	g.logger.Info().
		Str("kind", string(kind)).
		Str("value", value).
		Int("projects", touched).
		Msg("catalog entry deleted")
	return touched, nil
}
