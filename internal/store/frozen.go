package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/models"
)

type FrozenPlatformRepository struct {
	db *gorm.DB
}

func NewFrozenPlatformRepository(db *gorm.DB) *FrozenPlatformRepository {
	return &FrozenPlatformRepository{db: db}
}

// Freeze inserts markers, keeping existing ones untouched.
func (r *FrozenPlatformRepository) Freeze(ctx context.Context, markers []models.FrozenPlatform) error {
	if len(markers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&markers).Error
}

// List returns the markers of a period, optionally restricted to a model.
func (r *FrozenPlatformRepository) List(ctx context.Context, periodDate, modelID string) ([]models.FrozenPlatform, error) {
	var markers []models.FrozenPlatform
	q := r.db.WithContext(ctx).Where("period_date = ?", periodDate)
	if modelID != "" {
		q = q.Where("model_id = ?", modelID)
	}
	err := q.Order("model_id").Order("platform_id").Find(&markers).Error
	return markers, err
}

// Unfreeze removes markers for the given platforms of a model.
func (r *FrozenPlatformRepository) Unfreeze(ctx context.Context, periodDate, modelID string, platformIDs []string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("period_date = ? AND model_id = ? AND platform_id IN ?", periodDate, modelID, platformIDs).
		Delete(&models.FrozenPlatform{})
	return res.RowsAffected, res.Error
}

// DeleteForModel clears every marker of a model in a period.
func (r *FrozenPlatformRepository) DeleteForModel(ctx context.Context, periodDate, modelID string) error {
	return r.db.WithContext(ctx).
		Where("period_date = ? AND model_id = ?", periodDate, modelID).
		Delete(&models.FrozenPlatform{}).Error
}

// PurgeThrough removes markers of every period up to and including
// periodDate.
func (r *FrozenPlatformRepository) PurgeThrough(ctx context.Context, periodDate string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("period_date <= ?", periodDate).
		Delete(&models.FrozenPlatform{})
	return res.RowsAffected, res.Error
}
