package business

import (
	"sort"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
)

// Reconcile keeps one row per platform: the most recently updated one, ties
// broken by the higher id. Rows may come from any date inside the period
// (historical writes that skipped bucket normalization). The result is
// ordered by platform id.
func Reconcile(rows []models.LiveValue) []models.LiveValue {
	latest := make(map[string]models.LiveValue, len(rows))
	for _, row := range rows {
		cur, ok := latest[row.PlatformID]
		if !ok || row.UpdatedAt.After(cur.UpdatedAt) ||
			(row.UpdatedAt.Equal(cur.UpdatedAt) && row.ID > cur.ID) {
			latest[row.PlatformID] = row
		}
	}

	out := make([]models.LiveValue, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformID < out[j].PlatformID })
	return out
}

func valueMap(rows []models.LiveValue) map[string]float64 {
	m := make(map[string]float64, len(rows))
	for _, row := range rows {
		m[row.PlatformID] = row.Value
	}
	return m
}

func inputsFrom(rows []models.LiveValue) []calculator.Input {
	inputs := make([]calculator.Input, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, calculator.Input{PlatformID: row.PlatformID, Value: row.Value})
	}
	return inputs
}

func modelConfig(cfg *models.CalculatorConfig) calculator.ModelConfig {
	if cfg == nil {
		return calculator.ModelConfig{}
	}
	return calculator.ModelConfig{
		EnabledPlatforms:   []string(cfg.EnabledPlatforms),
		PercentageOverride: cfg.PercentageOverride,
		GroupPercentage:    cfg.GroupPercentage,
	}
}
