package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/models"
)

// Store adapts the repositories to the store interfaces of the taxonomy,
// relations, editor and services packages.
type Store struct {
	d Database
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.d.projectRepo.FindByID(ctx, id)
}

func (s *Store) ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	return s.d.projectRepo.FindAll(ctx, filter)
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return s.d.projectRepo.Add(ctx, p)
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project, expected time.Time) error {
	return s.d.projectRepo.Update(ctx, p, expected)
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.d.projectRepo.Delete(ctx, id)
}

func (s *Store) ProjectsWithTag(ctx context.Context, kind models.TagKind, value string) ([]models.Project, error) {
	return s.d.projectRepo.FindWithTag(ctx, kind, value)
}

func (s *Store) UpdateProjectTags(ctx context.Context, projectID uuid.UUID, kind models.TagKind, values []string) error {
	return s.d.projectRepo.SetTags(ctx, projectID, kind, values)
}

func (s *Store) ReplaceProjectMembers(ctx context.Context, projectID uuid.UUID, members []models.PeopleProject) error {
	return s.d.memberRepo.Replace(ctx, projectID, members)
}

func (s *Store) KeywordExists(ctx context.Context, keyword string) (bool, error) {
	return s.d.keywordRepo.Exists(ctx, keyword)
}

func (s *Store) InsertKeyword(ctx context.Context, keyword string, createdBy *uuid.UUID) error {
	return s.d.keywordRepo.Add(ctx, keyword, createdBy)
}

func (s *Store) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	return s.d.keywordRepo.FindAll(ctx)
}

func (s *Store) DeleteKeyword(ctx context.Context, keyword string) error {
	return s.d.keywordRepo.Delete(ctx, keyword)
}

func (s *Store) GenreExists(ctx context.Context, genre string) (bool, error) {
	return s.d.genreRepo.Exists(ctx, genre)
}

func (s *Store) InsertGenre(ctx context.Context, genre string) error {
	return s.d.genreRepo.Add(ctx, genre)
}

func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.d.genreRepo.FindAll(ctx)
}

func (s *Store) DeleteGenre(ctx context.Context, genre string) error {
	return s.d.genreRepo.Delete(ctx, genre)
}

func (s *Store) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	return s.d.institutionRepo.FindAll(ctx)
}

func (s *Store) FindPeopleByName(ctx context.Context, name string) ([]models.Person, error) {
	return s.d.personRepo.FindByName(ctx, name)
}

func (s *Store) ListPeople(ctx context.Context) ([]models.Person, error) {
	return s.d.personRepo.FindAll(ctx)
}

func (s *Store) FindPersonByUserID(ctx context.Context, userID uuid.UUID) (*models.Person, error) {
	return s.d.personRepo.FindByUserID(ctx, userID)
}

func (s *Store) CreateInvite(ctx context.Context, inv *models.Invite) error {
	return s.d.inviteRepo.Add(ctx, inv)
}

func (s *Store) ListInvites(ctx context.Context) ([]models.Invite, error) {
	return s.d.inviteRepo.FindAll(ctx)
}

func (s *Store) FindInviteByCode(ctx context.Context, code string) (*models.Invite, error) {
	return s.d.inviteRepo.FindByCode(ctx, code)
}

func (s *Store) SetInviteActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.d.inviteRepo.SetActive(ctx, id, active)
}

func (s *Store) DeleteInvite(ctx context.Context, id uuid.UUID) error {
	return s.d.inviteRepo.Delete(ctx, id)
}

func (s *Store) RedeemInvite(ctx context.Context, inviteID uuid.UUID, person *models.Person, usedAt time.Time) error {
	return s.d.inviteRepo.Redeem(ctx, inviteID, person, usedAt)
}
