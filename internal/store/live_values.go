package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/models"
)

type LiveValueRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLiveValueRepository(db *gorm.DB) *LiveValueRepository {
	return &LiveValueRepository{db: db, now: utcNow}
}

// Upsert writes values keyed by (model_id, platform_id, period_date). The
// update timestamp is assigned here, never by the caller.
func (r *LiveValueRepository) Upsert(ctx context.Context, values []models.LiveValue) error {
	if len(values) == 0 {
		return nil
	}
	now := r.now()
	rows := make([]models.LiveValue, len(values))
	for i, v := range values {
		v.ID = 0
		v.CreatedAt = now
		v.UpdatedAt = now
		rows[i] = v
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "model_id"},
			{Name: "platform_id"},
			{Name: "period_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

// ListInRange returns every row of the model dated between from and to
// inclusive, most recently updated first.
func (r *LiveValueRepository) ListInRange(ctx context.Context, modelID, from, to string) ([]models.LiveValue, error) {
	var rows []models.LiveValue
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND period_date >= ? AND period_date <= ?", modelID, from, to).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ModelIDsInRange returns the distinct models that have rows in the range.
func (r *LiveValueRepository) ModelIDsInRange(ctx context.Context, from, to string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.LiveValue{}).
		Where("period_date >= ? AND period_date <= ?", from, to).
		Distinct("model_id").
		Order("model_id").
		Pluck("model_id", &ids).Error
	return ids, err
}

// DeleteExact deletes the given rows only if they were not updated since
// they were read. Rows rewritten in the meantime survive.
func (r *LiveValueRepository) DeleteExact(ctx context.Context, rows []models.LiveValue) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			res := tx.Where("id = ? AND updated_at = ?", row.ID, row.UpdatedAt).Delete(&models.LiveValue{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	return deleted, err
}
