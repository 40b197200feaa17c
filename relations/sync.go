// Package relations rewrites the creator and instructor links of a project
// from the name lists held in an edit draft.
package relations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/horizons-db/archive-backend/models"
)

// maxLookups bounds concurrent name lookups per sync.
const maxLookups = 8

type Store interface {
	FindPeopleByName(ctx context.Context, name string) ([]models.Person, error)
	// ReplaceProjectMembers deletes every link of projectID and inserts members.
	ReplaceProjectMembers(ctx context.Context, projectID uuid.UUID, members []models.PeopleProject) error
}

// Unresolved is a name that did not map to exactly one person.
type Unresolved struct {
	Name    string      `json:"name"`
	Role    models.Role `json:"role"`
	Matches int         `json:"matches"`
}

func (u Unresolved) String() string {
	if u.Matches > 1 {
		return fmt.Sprintf("%s %q matches %d people and was skipped", u.Role, u.Name, u.Matches)
	}
	return fmt.Sprintf("%s %q no longer exists and was skipped", u.Role, u.Name)
}

// Report summarizes one synchronization.
type Report struct {
	Linked     int          `json:"linked"`
	Unresolved []Unresolved `json:"unresolved,omitempty"`
}

// Warnings renders unresolved names for display.
func (r Report) Warnings() []string {
	out := make([]string, 0, len(r.Unresolved))
	for _, u := range r.Unresolved {
		out = append(out, u.String())
	}
	return out
}

type Synchronizer struct {
	store  Store
	logger zerolog.Logger
}

func New(store Store) *Synchronizer {
	return &Synchronizer{
		store:  store,
		logger: log.With().Str("component", "relations").Logger(),
	}
}

type lookup struct {
	name   string
	role   models.Role
	people []models.Person
}

// Synchronize makes the project's links equal the given name lists. Names that
// do not resolve are skipped and reported; any store error aborts with no links
// changed by this call.
func (s *Synchronizer) Synchronize(ctx context.Context, projectID uuid.UUID, creators, instructors []string) (Report, error) {
	lookups := make([]*lookup, 0, len(creators)+len(instructors))
	for _, n := range creators {
		if n = strings.TrimSpace(n); n != "" {
			lookups = append(lookups, &lookup{name: n, role: models.RoleCreator})
		}
	}
	for _, n := range instructors {
		if n = strings.TrimSpace(n); n != "" {
			lookups = append(lookups, &lookup{name: n, role: models.RoleInstructor})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for _, l := range lookups {
		g.Go(func() error {
			people, err := s.store.FindPeopleByName(gctx, l.name)
			if err != nil {
				return fmt.Errorf("resolve %s %q: %w", l.role, l.name, err)
			}
			l.people = people
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var report Report
	seen := make(map[string]bool)
	members := []models.PeopleProject{}
	for _, l := range lookups {
		if len(l.people) != 1 {
			u := Unresolved{Name: l.name, Role: l.role, Matches: len(l.people)}
			report.Unresolved = append(report.Unresolved, u)
			s.logger.Warn().
				Str("projectID", projectID.String()).
				Str("name", l.name).
				Str("role", string(l.role)).
				Int("matches", len(l.people)).
				Msg("skipping unresolved member")
			continue
		}
		person := l.people[0]
		key := person.ID.String() + "/" + string(l.role)
		if seen[key] {
			continue
		}
		seen[key] = true
		members = append(members, models.PeopleProject{
			ProjectID: projectID,
			PersonID:  person.ID,
			Role:      l.role,
		})
	}

	if err := s.store.ReplaceProjectMembers(ctx, projectID, members); err != nil {
		return Report{}, fmt.Errorf("replace members of project %s: %w", projectID, err)
	}
	report.Linked = len(members)
	return report, nil
}
