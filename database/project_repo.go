package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// GetDB returns the underlying database connection for debugging purposes
func (r *ProjectRepo) GetDB() *gorm.DB {
	return r.db
}

// withRelations preloads the institution and the people linked to each project.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Institution").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("people_projects.role, people_projects.id")
		}).
		Preload("Members.Person")
}

// FindAll returns projects matching filter, newest first.
func (r *ProjectRepo) FindAll(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	q := withRelations(r.db.WithContext(ctx)).Model(&models.Project{})

	if filter.Title != "" {
		q = q.Where("projects.title ILIKE ?", containsPattern(filter.Title))
	}
	if filter.Genre != "" {
		q = q.Where("jsonb_exists(projects.genres, ?)", filter.Genre)
	}
	if len(filter.Keywords) > 0 {
		keywords := make([]string, 0, len(filter.Keywords))
		for _, k := range filter.Keywords {
			keywords = append(keywords, strings.ToLower(k))
		}
		q = q.Where("jsonb_exists_any(projects.keywords, ARRAY[?]::text[])", keywords)
	}
	if filter.Institution != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM institutions i
			WHERE i.id = projects.institution_id AND LOWER(i.institutionname) = LOWER(?)
		)`, filter.Institution)
	}
	if filter.Creator != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM people_projects pp JOIN people pe ON pe.id = pp.person_id
			WHERE pp.project_id = projects.id AND pp.role = ? AND pe.name ILIKE ?
		)`, string(models.RoleCreator), containsPattern(filter.Creator))
	}

	projects := []models.Project{}
	err := q.Order("projects.created_at DESC").Find(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID. It reads from the primary so an edit
// session never starts from a lagging replica.
func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := withRelations(r.db.WithContext(ctx).Clauses(dbresolver.Write)).
		First(&project, "projects.id = ?", id).Error
	if err != nil {
		return nil, notFound("project", id, err)
	}
	return &project, nil
}

// Add inserts a new project row. Members are linked separately.
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	project.Normalize()
	now := timestamp()
	project.CreatedAt, project.UpdatedAt = now, now
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// Update writes every editable column if updated_at still equals expected.
func (r *ProjectRepo) Update(ctx context.Context, project *models.Project, expected time.Time) error {
	project.Normalize()
	now := timestamp()
	if !now.After(expected) {
		now = expected.Add(time.Microsecond)
	}

	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND updated_at = ?", project.ID, expected).
		Updates(map[string]interface{}{
			"title":            project.Title,
			"briefdescription": project.BriefDescription,
			"fulldescription":  project.FullDescription,
			"institution_id":   project.InstitutionID,
			"classnumber":      project.ClassNumber,
			"coursename":       project.CourseName,
			"assignment":       project.Assignment,
			"term":             project.Term,
			"year":             project.Year,
			"videolink":        project.VideoLink,
			"downloadlink":     project.DownloadLink,
			"repolink":         project.RepoLink,
			"image_urls":       project.ImageURLs,
			"keywords":         project.Keywords,
			"genres":           project.Genres,
			"techused":         project.TechUsed,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		exists, err := r.exists(ctx, project.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("project %s: %w", project.ID, errs.ErrNotFound)
		}
		return fmt.Errorf("project %s: %w", project.ID, errs.ErrStaleRecord)
	}
	project.UpdatedAt = now
	return nil
}

// Delete removes a project from the database by id. Links cascade.
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// FindWithTag returns bare project rows whose kind array contains value.
func (r *ProjectRepo) FindWithTag(ctx context.Context, kind models.TagKind, value string) ([]models.Project, error) {
	column, err := tagColumn(kind)
	if err != nil {
		return nil, err
	}
	projects := []models.Project{}
	err = r.db.WithContext(ctx).
		Where(fmt.Sprintf("jsonb_exists(%s, ?)", column), value).
		Order("created_at").
		Find(&projects).Error
	return projects, err
}

// SetTags overwrites one array column.
func (r *ProjectRepo) SetTags(ctx context.Context, id uuid.UUID, kind models.TagKind, values []string) error {
	column, err := tagColumn(kind)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       models.NewTagSlice(values),
			"updated_at": timestamp(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *ProjectRepo) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).
		Model(&models.Project{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// tagColumn maps the catalog-backed tag kinds to their projects column.
func tagColumn(kind models.TagKind) (string, error) {
	switch kind {
	case models.KindKeyword:
		return "keywords", nil
	case models.KindGenre:
		return "genres", nil
	case models.KindTech:
		return "techused", nil
	}
	return "", fmt.Errorf("tag kind %s is not a project column", kind)
}

// containsPattern builds an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + escaped + "%"
}

// timestamp is truncated to the precision Postgres keeps.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
