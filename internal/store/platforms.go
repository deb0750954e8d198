package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
)

type PlatformRepository struct {
	db *gorm.DB
}

func NewPlatformRepository(db *gorm.DB) *PlatformRepository {
	return &PlatformRepository{db: db}
}

// List returns every platform ordered by id.
func (r *PlatformRepository) List(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	err := r.db.WithContext(ctx).Order("id").Find(&platforms).Error
	return platforms, err
}

// Seed inserts the platforms that do not exist yet. Admin edits survive.
// Nothing is written when any platform breaks the rule invariants.
func (r *PlatformRepository) Seed(ctx context.Context, platforms []models.Platform) error {
	if len(platforms) == 0 {
		return nil
	}
	var invalid []error
	for _, p := range platforms {
		if err := calculator.RuleFromModel(p).Validate(); err != nil {
			invalid = append(invalid, err)
		}
	}
	if err := errors.Join(invalid...); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&platforms).Error
}

// Save creates or replaces a platform rule.
func (r *PlatformRepository) Save(ctx context.Context, p *models.Platform) error {
	if err := calculator.RuleFromModel(*p).Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(p).Error
}
