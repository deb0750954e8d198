package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/models"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// InsertNew inserts records, skipping any whose key is already archived.
// Existing records are never modified.
func (r *HistoryRepository) InsertNew(ctx context.Context, records []models.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
}

// List returns the archived rows of a model for a period.
func (r *HistoryRepository) List(ctx context.Context, modelID, periodDate string) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND period_date = ?", modelID, periodDate).
		Order("platform_id").
		Find(&records).Error
	return records, err
}

// CountPeriod counts every archived row of a period.
func (r *HistoryRepository) CountPeriod(ctx context.Context, periodDate, periodType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.HistoryRecord{}).
		Where("period_date = ? AND period_type = ?", periodDate, periodType).
		Count(&count).Error
	return count, err
}
