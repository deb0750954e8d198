package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/models"
)

type TotalsRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTotalsRepository(db *gorm.DB) *TotalsRepository {
	return &TotalsRepository{db: db, now: utcNow}
}

// Upsert replaces the cached totals of (model_id, period_date).
func (r *TotalsRepository) Upsert(ctx context.Context, totals models.ConsolidatedTotals) error {
	totals.ID = 0
	totals.UpdatedAt = r.now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "model_id"}, {Name: "period_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_usd_bruto", "total_usd_modelo", "total_cop_modelo", "updated_at",
		}),
	}).Create(&totals).Error
}

// LatestInRange returns the most recently updated totals row of the model
// dated within the range, or nil.
func (r *TotalsRepository) LatestInRange(ctx context.Context, modelID, from, to string) (*models.ConsolidatedTotals, error) {
	var totals models.ConsolidatedTotals
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND period_date >= ? AND period_date <= ?", modelID, from, to).
		Order("updated_at DESC").
		Order("id DESC").
		First(&totals).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// ModelIDsInRange returns the models that have cached totals in the range.
func (r *TotalsRepository) ModelIDsInRange(ctx context.Context, from, to string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ConsolidatedTotals{}).
		Where("period_date >= ? AND period_date <= ?", from, to).
		Distinct("model_id").
		Order("model_id").
		Pluck("model_id", &ids).Error
	return ids, err
}

// DeleteInRange drops the cached totals of a model in the range.
func (r *TotalsRepository) DeleteInRange(ctx context.Context, modelID, from, to string) error {
	return r.db.WithContext(ctx).
		Where("model_id = ? AND period_date >= ? AND period_date <= ?", modelID, from, to).
		Delete(&models.ConsolidatedTotals{}).Error
}
