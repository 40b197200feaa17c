package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"gorm.io/gorm"
)

type KeywordRepo struct {
	db *gorm.DB
}

func NewKeywordRepo(db *gorm.DB) *KeywordRepo {
	return &KeywordRepo{db}
}

// Exists reports whether keyword is in the catalog (exact match).
func (r *KeywordRepo) Exists(ctx context.Context, keyword string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Keyword{}).Where("keyword = ?", keyword).Count(&count).Error
	return count > 0, err
}

func (r *KeywordRepo) Add(ctx context.Context, keyword string, createdBy *uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.Keyword{Keyword: keyword, CreatedBy: createdBy}).Error
}

// FindAll returns all keywords in alphabetical order
func (r *KeywordRepo) FindAll(ctx context.Context) ([]models.Keyword, error) {
	keywords := []models.Keyword{}
	err := r.db.WithContext(ctx).Order("keyword").Find(&keywords).Error
	return keywords, err
}

func (r *KeywordRepo) Delete(ctx context.Context, keyword string) error {
	res := r.db.WithContext(ctx).Where("keyword = ?", keyword).Delete(&models.Keyword{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("keyword %q: %w", keyword, errs.ErrNotFound)
	}
	return nil
}

type GenreRepo struct {
	db *gorm.DB
}

func NewGenreRepo(db *gorm.DB) *GenreRepo {
	return &GenreRepo{db}
}

func (r *GenreRepo) Exists(ctx context.Context, genre string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Genre{}).Where("genre = ?", genre).Count(&count).Error
	return count > 0, err
}

func (r *GenreRepo) Add(ctx context.Context, genre string) error {
	return r.db.WithContext(ctx).Create(&models.Genre{Genre: genre}).Error
}

func (r *GenreRepo) FindAll(ctx context.Context) ([]models.Genre, error) {
	genres := []models.Genre{}
	err := r.db.WithContext(ctx).Order("genre").Find(&genres).Error
	return genres, err
}

func (r *GenreRepo) Delete(ctx context.Context, genre string) error {
	res := r.db.WithContext(ctx).Where("genre = ?", genre).Delete(&models.Genre{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("genre %q: %w", genre, errs.ErrNotFound)
	}
	return nil
}

type InstitutionRepo struct {
	db *gorm.DB
}

func NewInstitutionRepo(db *gorm.DB) *InstitutionRepo {
	return &InstitutionRepo{db}
}

func (r *InstitutionRepo) FindAll(ctx context.Context) ([]models.Institution, error) {
	institutions := []models.Institution{}
	err := r.db.WithContext(ctx).Order("institutionname").Find(&institutions).Error
	return institutions, err
}

func (r *InstitutionRepo) Add(ctx context.Context, institution *models.Institution) error {
	return r.db.WithContext(ctx).Create(institution).Error
}
