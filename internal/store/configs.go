package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gestioncalc/internal/models"
)

type CalculatorConfigRepository struct {
	db *gorm.DB
}

func NewCalculatorConfigRepository(db *gorm.DB) *CalculatorConfigRepository {
	return &CalculatorConfigRepository{db: db}
}

// Active returns every active configuration ordered by model.
func (r *CalculatorConfigRepository) Active(ctx context.Context) ([]models.CalculatorConfig, error) {
	var configs []models.CalculatorConfig
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("model_id").
		Order("id DESC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}

	// One configuration per model: the newest wins.
	seen := make(map[string]bool, len(configs))
	out := configs[:0]
	for _, c := range configs {
		if seen[c.ModelID] {
			continue
		}
		seen[c.ModelID] = true
		out = append(out, c)
	}
	return out, nil
}

// ActiveFor returns the active configuration of a model, or nil.
func (r *CalculatorConfigRepository) ActiveFor(ctx context.Context, modelID string) (*models.CalculatorConfig, error) {
	var cfg models.CalculatorConfig
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND active = ?", modelID, true).
		Order("id DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save creates or updates a configuration.
func (r *CalculatorConfigRepository) Save(ctx context.Context, cfg *models.CalculatorConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}
