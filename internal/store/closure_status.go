package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gestioncalc/internal/models"
)

type ClosureStatusRepository struct {
	db *gorm.DB
}

func NewClosureStatusRepository(db *gorm.DB) *ClosureStatusRepository {
	return &ClosureStatusRepository{db: db}
}

// Get returns the status of a period, or nil when none was recorded.
func (r *ClosureStatusRepository) Get(ctx context.Context, periodDate, periodType string) (*models.PeriodClosureStatus, error) {
	var status models.PeriodClosureStatus
	err := r.db.WithContext(ctx).
		Where("period_date = ? AND period_type = ?", periodDate, periodType).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// MarkPending records a pending status unless one already exists.
func (r *ClosureStatusRepository) MarkPending(ctx context.Context, periodDate, periodType string, meta models.JSONMap) error {
	status := models.PeriodClosureStatus{
		PeriodDate: periodDate,
		PeriodType: periodType,
		Status:     models.ClosurePending,
		Metadata:   meta,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&status).Error
}

// MarkCompleted moves the period to completed, creating the record if
// needed.
func (r *ClosureStatusRepository) MarkCompleted(ctx context.Context, periodDate, periodType string, meta models.JSONMap, at time.Time) error {
	status := models.PeriodClosureStatus{
		PeriodDate:  periodDate,
		PeriodType:  periodType,
		Status:      models.ClosureCompleted,
		Metadata:    meta,
		CompletedAt: &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period_date"}, {Name: "period_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "metadata", "completed_at", "updated_at"}),
	}).Create(&status).Error
}

// Recent returns the latest statuses, newest period first.
func (r *ClosureStatusRepository) Recent(ctx context.Context, limit int) ([]models.PeriodClosureStatus, error) {
	var statuses []models.PeriodClosureStatus
	err := r.db.WithContext(ctx).
		Order("period_date DESC").
		Limit(limit).
		Find(&statuses).Error
	return statuses, err
}
