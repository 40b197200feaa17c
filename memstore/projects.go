package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
)

// assemble returns a detached copy of the row with members and institution. Callers hold s.mu.
func (s *Store) assemble(row *models.Project) *models.Project {
	p := row.Clone()
	p.Members = []models.PeopleProject{}
	for _, m := range s.members {
		if m.ProjectID != row.ID {
			continue
		}
		if person, ok := s.people[m.PersonID]; ok {
			copied := *person
			m.Person = &copied
		}
		p.Members = append(p.Members, m)
	}
	p.Institution = nil
	if row.InstitutionID != nil {
		if inst, ok := s.institutions[*row.InstitutionID]; ok {
			copied := *inst
			p.Institution = &copied
		}
	}
	return p
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "GetProject"); err != nil {
		return nil, err
	}
	row, ok := s.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	return s.assemble(row), nil
}

// ListProjects returns matching projects newest first.
func (s *Store) ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListProjects"); err != nil {
		return nil, err
	}
	out := []models.Project{}
	for i := len(s.projectOrder) - 1; i >= 0; i-- {
		p := s.assemble(s.projects[s.projectOrder[i]])
		if filter.Match(p) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "CreateProject"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := s.projects[p.ID]; ok {
		return duplicate("project", p.ID.String())
	}
	if p.InstitutionID != nil {
		if _, ok := s.institutions[*p.InstitutionID]; !ok {
			return fmt.Errorf("institution %s: %w", p.InstitutionID, errs.ErrForeignKeyConstraint)
		}
	}
	p.Normalize()
	now := s.timestamp()
	p.CreatedAt, p.UpdatedAt = now, now
	row := p.Clone()
	row.Members, row.Institution = nil, nil
	s.projects[p.ID] = row
	s.projectOrder = append(s.projectOrder, p.ID)
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project, expected time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "UpdateProject"); err != nil {
		return err
	}
	row, ok := s.projects[p.ID]
	if !ok {
		return notFound("project", p.ID)
	}
	if !row.UpdatedAt.Equal(expected) {
		return fmt.Errorf("project %s: %w", p.ID, errs.ErrStaleRecord)
	}
	now := s.timestamp()
	if !now.After(row.UpdatedAt) {
		now = row.UpdatedAt.Add(time.Microsecond)
	}
	p.Normalize()
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = now
	updated := p.Clone()
	updated.Members, updated.Institution = nil, nil
	s.projects[p.ID] = updated
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteProject"); err != nil {
		return err
	}
	if _, ok := s.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(s.projects, id)
	for i, pid := range s.projectOrder {
		if pid == id {
			s.projectOrder = append(s.projectOrder[:i], s.projectOrder[i+1:]...)
			break
		}
	}
	kept := s.members[:0]
	for _, m := range s.members {
		if m.ProjectID != id {
			kept = append(kept, m)
		}
	}
	s.members = kept
	return nil
}

func (s *Store) ProjectsWithTag(ctx context.Context, kind models.TagKind, value string) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ProjectsWithTag"); err != nil {
		return nil, err
	}
	out := []models.Project{}
	for _, id := range s.projectOrder {
		row := s.projects[id]
		if models.ContainsTag(row.Tags(kind), value) {
			out = append(out, *row.Clone())
		}
	}
	return out, nil
}

func (s *Store) UpdateProjectTags(ctx context.Context, projectID uuid.UUID, kind models.TagKind, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "UpdateProjectTags"); err != nil {
		return err
	}
	row, ok := s.projects[projectID]
	if !ok {
		return notFound("project", projectID)
	}
	if !row.SetTags(kind, values) {
		return fmt.Errorf("tag kind %s is not a project column", kind)
	}
	row.UpdatedAt = s.timestamp()
	return nil
}

// ReplaceProjectMembers swaps every link of the project in one step.
func (s *Store) ReplaceProjectMembers(ctx context.Context, projectID uuid.UUID, members []models.PeopleProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ReplaceProjectMembers"); err != nil {
		return err
	}
	if _, ok := s.projects[projectID]; !ok {
		return notFound("project", projectID)
	}
	seen := make(map[string]bool)
	fresh := make([]models.PeopleProject, 0, len(members))
	for _, m := range members {
		if _, ok := s.people[m.PersonID]; !ok {
			return fmt.Errorf("person %s: %w", m.PersonID, errs.ErrForeignKeyConstraint)
		}
		key := m.PersonID.String() + "/" + string(m.Role)
		if seen[key] {
			return duplicate("people_projects", key)
		}
		seen[key] = true
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.ProjectID = projectID
		m.Person = nil
		fresh = append(fresh, m)
	}
	kept := make([]models.PeopleProject, 0, len(s.members)+len(fresh))
	for _, m := range s.members {
		if m.ProjectID != projectID {
			kept = append(kept, m)
		}
	}
	s.members = append(kept, fresh...)
	return nil
}

// Members returns the raw link rows of a project.
func (s *Store) Members(projectID uuid.UUID) []models.PeopleProject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.PeopleProject{}
	for _, m := range s.members {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out
}
