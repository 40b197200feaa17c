package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"gorm.io/gorm"
)

type PersonRepo struct {
	db *gorm.DB
}

func NewPersonRepo(db *gorm.DB) *PersonRepo {
	return &PersonRepo{db}
}

// FindByName matches the whole name case-insensitively, ignoring surrounding
// spaces. The expression matches idx_people_name_key.
func (r *PersonRepo) FindByName(ctx context.Context, name string) ([]models.Person, error) {
	people := []models.Person{}
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = LOWER(TRIM(?))", name).
		Order("id").
		Find(&people).Error
	return people, err
}

func (r *PersonRepo) FindAll(ctx context.Context) ([]models.Person, error) {
	people := []models.Person{}
	err := r.db.WithContext(ctx).Order("LOWER(name)").Find(&people).Error
	return people, err
}

func (r *PersonRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Person, error) {
	var person models.Person
	if err := r.db.WithContext(ctx).First(&person, "user_id = ?", userID).Error; err != nil {
		return nil, notFound("person for user", userID, err)
	}
	return &person, nil
}

func (r *PersonRepo) Add(ctx context.Context, person *models.Person) error {
	if person.UserType == "" {
		person.UserType = models.UserTypeStudent
	}
	return r.db.WithContext(ctx).Create(person).Error
}

type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db}
}

// Replace deletes every link of projectID and inserts members in one transaction.
func (r *MemberRepo) Replace(ctx context.Context, projectID uuid.UUID, members []models.PeopleProject) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("project %s: %w", projectID, errs.ErrNotFound)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.PeopleProject{}).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		rows := make([]models.PeopleProject, len(members))
		for i, m := range members {
			rows[i] = models.PeopleProject{ID: m.ID, ProjectID: projectID, PersonID: m.PersonID, Role: m.Role}
		}
		return tx.Omit("Person").Create(&rows).Error
	})
}
