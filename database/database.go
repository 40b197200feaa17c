package database

import (
	"errors"
	"fmt"

	"github.com/horizons-db/archive-backend/errs"
	"gorm.io/gorm"
)

type Database struct {
	projectRepo     *ProjectRepo
	keywordRepo     *KeywordRepo
	genreRepo       *GenreRepo
	institutionRepo *InstitutionRepo
	personRepo      *PersonRepo
	memberRepo      *MemberRepo
	inviteRepo      *InviteRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		projectRepo:     NewProjectRepo(db),
		keywordRepo:     NewKeywordRepo(db),
		genreRepo:       NewGenreRepo(db),
		institutionRepo: NewInstitutionRepo(db),
		personRepo:      NewPersonRepo(db),
		memberRepo:      NewMemberRepo(db),
		inviteRepo:      NewInviteRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) KeywordRepo() *KeywordRepo {
	return d.keywordRepo
}

func (d Database) GenreRepo() *GenreRepo {
	return d.genreRepo
}

func (d Database) InstitutionRepo() *InstitutionRepo {
	return d.institutionRepo
}

func (d Database) PersonRepo() *PersonRepo {
	return d.personRepo
}

func (d Database) MemberRepo() *MemberRepo {
	return d.memberRepo
}

func (d Database) InviteRepo() *InviteRepo {
	return d.inviteRepo
}

// Store exposes the repositories through the narrow store interfaces the
// core packages declare.
func (d Database) Store() *Store {
	return &Store{d: d}
}

// notFound turns gorm's record-not-found into errs.ErrNotFound.
func notFound(entity string, key interface{}, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, key, errs.ErrNotFound)
	}
	return err
}
