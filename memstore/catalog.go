package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/models"
)

func (s *Store) KeywordExists(ctx context.Context, keyword string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "KeywordExists"); err != nil {
		return false, err
	}
	_, ok := s.keywords[keyword]
	return ok, nil
}

func (s *Store) InsertKeyword(ctx context.Context, keyword string, createdBy *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "InsertKeyword"); err != nil {
		return err
	}
	if _, ok := s.keywords[keyword]; ok {
		return duplicate("keyword", keyword)
	}
	s.keywords[keyword] = &models.Keyword{ID: uuid.New(), Keyword: keyword, CreatedBy: createdBy, CreatedAt: s.timestamp()}
	return nil
}

func (s *Store) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListKeywords"); err != nil {
		return nil, err
	}
	out := make([]models.Keyword, 0, len(s.keywords))
	for _, k := range sortedKeys(s.keywords) {
		out = append(out, *s.keywords[k])
	}
	return out, nil
}

func (s *Store) DeleteKeyword(ctx context.Context, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteKeyword"); err != nil {
		return err
	}
	if _, ok := s.keywords[keyword]; !ok {
		return notFound("keyword", keyword)
	}
	delete(s.keywords, keyword)
	return nil
}

func (s *Store) GenreExists(ctx context.Context, genre string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GenreExists"); err != nil {
		return false, err
	}
	_, ok := s.genres[genre]
	return ok, nil
}

func (s *Store) InsertGenre(ctx context.Context, genre string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "InsertGenre"); err != nil {
		return err
	}
	if _, ok := s.genres[genre]; ok {
		return duplicate("genre", genre)
	}
	s.genres[genre] = &models.Genre{ID: uuid.New(), Genre: genre, CreatedAt: s.timestamp()}
	return nil
}

func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListGenres"); err != nil {
		return nil, err
	}
	out := make([]models.Genre, 0, len(s.genres))
	for _, g := range sortedKeys(s.genres) {
		out = append(out, *s.genres[g])
	}
	return out, nil
}

func (s *Store) DeleteGenre(ctx context.Context, genre string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteGenre"); err != nil {
		return err
	}
	if _, ok := s.genres[genre]; !ok {
		return notFound("genre", genre)
	}
	delete(s.genres, genre)
	return nil
}

func (s *Store) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListInstitutions"); err != nil {
		return nil, err
	}
	out := make([]models.Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstitutionName < out[j].InstitutionName })
	return out, nil
}

// FindPeopleByName matches the whole name case-insensitively.
func (s *Store) FindPeopleByName(ctx context.Context, name string) ([]models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "FindPeopleByName"); err != nil {
		return nil, err
	}
	out := []models.Person{}
	for _, p := range s.people {
		if sameName(p.Name, name) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) ListPeople(ctx context.Context) ([]models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListPeople"); err != nil {
		return nil, err
	}
	out := make([]models.Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *Store) FindPersonByUserID(ctx context.Context, userID uuid.UUID) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "FindPersonByUserID"); err != nil {
		return nil, err
	}
	for _, p := range s.people {
		if p.UserID != nil && *p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, notFound("person for user", userID)
}

// insertPerson enforces the unique email, user and lower(name) indexes. Callers hold s.mu.
func (s *Store) insertPerson(p *models.Person) error {
	p.Name = strings.TrimSpace(p.Name)
	for _, existing := range s.people {
		switch {
		case strings.EqualFold(existing.Email, p.Email):
			return duplicate("person email", p.Email)
		case sameName(existing.Name, p.Name):
			return duplicate("person name", p.Name)
		case existing.UserID != nil && p.UserID != nil && *existing.UserID == *p.UserID:
			return duplicate("person user", p.UserID.String())
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UserType == "" {
		p.UserType = models.UserTypeStudent
	}
	copied := *p
	s.people[p.ID] = &copied
	return nil
}
