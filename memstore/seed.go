package memstore

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/models"
)

// Seed helpers panic on misuse; they only run in tests and local bootstrap.

// AddPerson inserts a person, enforcing the same unique indexes as Postgres.
func (s *Store) AddPerson(p models.Person) models.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertPerson(&p); err != nil {
		panic(err)
	}
	return p
}

// AddPersonUnchecked skips the name index to model legacy rows that predate it.
func (s *Store) AddPersonUnchecked(p models.Person) models.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	copied := p
	s.people[p.ID] = &copied
	return p
}

func (s *Store) AddInstitution(name string) models.Institution {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst := models.Institution{ID: uuid.New(), InstitutionName: name}
	s.institutions[inst.ID] = &inst
	return inst
}

func (s *Store) AddKeywords(keywords ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keywords {
		k = strings.ToLower(k)
		s.keywords[k] = &models.Keyword{ID: uuid.New(), Keyword: k, CreatedAt: s.timestamp()}
	}
}

func (s *Store) AddGenres(genres ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range genres {
		s.genres[g] = &models.Genre{ID: uuid.New(), Genre: g, CreatedAt: s.timestamp()}
	}
}

// AddProject stores p with the given members, returning the stored record.
func (s *Store) AddProject(p models.Project, creators, instructors []models.Person) *models.Project {
	ctx := context.Background()
	if err := s.CreateProject(ctx, &p); err != nil {
		panic(err)
	}
	var members []models.PeopleProject
	for _, c := range creators {
		members = append(members, models.PeopleProject{PersonID: c.ID, Role: models.RoleCreator})
	}
	for _, i := range instructors {
		members = append(members, models.PeopleProject{PersonID: i.ID, Role: models.RoleInstructor})
	}
	if err := s.ReplaceProjectMembers(ctx, p.ID, members); err != nil {
		panic(err)
	}
	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		panic(err)
	}
	return got
}
