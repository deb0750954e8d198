package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gestioncalc/internal/models"
)

type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// Latest returns the current snapshot of a kind; if none is current it
// returns the most recent active one. Nil when the kind was never stored.
func (r *RateRepository) Latest(ctx context.Context, kind models.RateKind) (*models.Rate, error) {
	var rate models.Rate
	err := r.db.WithContext(ctx).
		Where("kind = ? AND active = ? AND valid_to IS NULL", kind, true).
		Order("valid_from DESC").
		Order("id DESC").
		First(&rate).Error
	if err == nil {
		return &rate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("kind = ? AND active = ?", kind, true).
		Order("valid_from DESC").
		Order("id DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// Replace closes the current snapshot of the kind and inserts a new one in
// a single transaction, so at most one snapshot per kind is current.
func (r *RateRepository) Replace(ctx context.Context, kind models.RateKind, value float64, source string, at time.Time) (*models.Rate, error) {
	rate := models.Rate{
		Kind:      kind,
		Value:     value,
		ValidFrom: at,
		Active:    true,
		Source:    source,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Rate{}).
			Where("kind = ? AND valid_to IS NULL", kind).
			Update("valid_to", at).Error; err != nil {
			return err
		}
		return tx.Create(&rate).Error
	})
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// History returns the snapshots of a kind, newest first.
func (r *RateRepository) History(ctx context.Context, kind models.RateKind, limit int) ([]models.Rate, error) {
	var rates []models.Rate
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("valid_from DESC").
		Limit(limit).
		Find(&rates).Error
	return rates, err
}
