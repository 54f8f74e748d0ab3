package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/models"
)

type ExpertiseService struct {
	db *gorm.DB
}

func NewExpertiseService(db *gorm.DB) *ExpertiseService {
	return &ExpertiseService{db: db}
}

func (es *ExpertiseService) List(ctx context.Context) ([]models.Expertise, error) {
	var expertises []models.Expertise
	err := es.db.WithContext(ctx).Order("name ASC").Find(&expertises).Error
	return expertises, apperrors.FromGorm(err, "expertises")
}

func (es *ExpertiseService) Create(ctx context.Context, name, description string) (*models.Expertise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewFieldError("name", "Name is required")
	}
	expertise := models.Expertise{Name: name, Description: strings.TrimSpace(description)}
	err := es.db.WithContext(ctx).Create(&expertise).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperrors.NewConflictError("name", "Expertise already exists")
	}
	if err != nil {
		return nil, apperrors.FromGorm(err, "expertise")
	}
	return &expertise, nil
}

// Delete removes the expertise and its inspector links.
func (es *ExpertiseService) Delete(ctx context.Context, id string) error {
	return es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM inspector_expertises WHERE expertise_id = ?", id).Error; err != nil {
			return apperrors.FromGorm(err, "expertise")
		}
		res := tx.Delete(&models.Expertise{}, "id = ?", id)
		if res.Error != nil {
			return apperrors.FromGorm(res.Error, "expertise")
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFoundError("expertise not found")
		}
		return nil
	})
}

// EnsureDefaults inserts the given names when missing.
func (es *ExpertiseService) EnsureDefaults(ctx context.Context, names []string) error {
	for _, name := range names {
		expertise := models.Expertise{Name: name}
		err := es.db.WithContext(ctx).Where(models.Expertise{Name: name}).FirstOrCreate(&expertise).Error
		if err != nil {
			return apperrors.FromGorm(err, "expertise")
		}
	}
	return nil
}
