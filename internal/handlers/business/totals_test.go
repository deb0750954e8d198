package business

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
)

func TestTotalsConsolidateRowsAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	t0 := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)

	// Historical writes that were stored under their calendar day.
	rows := []models.LiveValue{
		{ModelID: "m1", PlatformID: "chaturbate", PeriodDate: "2025-03-03", Value: 400, CreatedAt: t0, UpdatedAt: t0},
		{ModelID: "m1", PlatformID: "chaturbate", PeriodDate: "2025-03-12", Value: 1000, CreatedAt: t0, UpdatedAt: t0.Add(48 * time.Hour)},
		{ModelID: "m1", PlatformID: "big7", PeriodDate: "2025-03-07", Value: 100, CreatedAt: t0, UpdatedAt: t0.Add(24 * time.Hour)},
		{ModelID: "m1", PlatformID: "aw", PeriodDate: "2025-03-12", Value: 50, CreatedAt: t0, UpdatedAt: t0.Add(72 * time.Hour)},
	}
	require.NoError(t, env.db.Create(&rows).Error)

	got, err := env.totals.Get(env.ctx, "m1", "2025-03-14", env.at(2025, 3, 14, 12, 0))
	require.NoError(t, err)

	want := calculator.ComputeTotals(calculator.DefaultRules, []calculator.Input{
		{PlatformID: "chaturbate", Value: 1000},
		{PlatformID: "big7", Value: 100},
		{PlatformID: "aw", Value: 50},
	}, calculator.DefaultRates(), calculator.ModelConfig{})

	assert.Equal(t, "2025-03-01", got.PeriodDate)
	assert.InDelta(t, want.TotalUSDBruto, got.TotalUSDBruto, 1e-9)
	assert.InDelta(t, want.TotalUSDModelo, got.TotalUSDModelo, 1e-9)
	assert.Equal(t, want.TotalCOPModelo, got.TotalCOPModelo)

	var count int64
	require.NoError(t, env.db.Model(&models.ConsolidatedTotals{}).Where("model_id = ?", "m1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestComputeUnconfiguredModelIsZero(t *testing.T) {
	env := newTestEnv(t)
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "ghost", "", now, map[string]float64{"chaturbate": 1000})

	comp, err := env.totals.Recalculate(env.ctx, "ghost", "", now)
	require.NoError(t, err)
	assert.False(t, comp.Configured)
	assert.Zero(t, comp.Result.TotalUSDModelo)
	assert.Len(t, comp.Values, 1)
	assert.Equal(t, calculator.DefaultRates(), comp.Result.Rates)

	cached, err := env.st.Totals.LatestInRange(env.ctx, "ghost", "2025-03-01", "2025-03-15")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestComputeUsesPercentageOverride(t *testing.T) {
	env := newTestEnv(t)
	pct := 60.0
	require.NoError(t, env.st.Configs.Save(env.ctx, &models.CalculatorConfig{ModelID: "m1", Active: true, PercentageOverride: &pct}))
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000, "superfoon": 10})

	comp, err := env.totals.Compute(env.ctx, "m1", env.clock.Current(now))
	require.NoError(t, err)
	// chaturbate 50 at 60%, superfoon 10.1 paid in full.
	assert.InDelta(t, 30+10.1, comp.Result.TotalUSDModelo, 1e-9)
}

func TestComputeUsesStoredRates(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	_, err := env.st.Rates.Replace(env.ctx, models.RateUSDCOP, 4000, "manual", time.Now().UTC())
	require.NoError(t, err)
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000})

	comp, err := env.totals.Compute(env.ctx, "m1", env.clock.Current(now))
	require.NoError(t, err)
	assert.Equal(t, 160000.0, comp.Result.TotalCOPModelo)
	assert.Equal(t, "snapshot", comp.RateSources[models.RateUSDCOP])
}

func TestGetRecomputesAfterRateChange(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	_, err := env.rates.Set(env.ctx, models.RateUSDCOP, 4000, "manual")
	require.NoError(t, err)
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000})

	before, err := env.totals.Get(env.ctx, "m1", "", now)
	require.NoError(t, err)
	assert.Equal(t, 160000.0, before.TotalCOPModelo)

	time.Sleep(2 * time.Millisecond)
	_, err = env.rates.Set(env.ctx, models.RateUSDCOP, 4500, "manual")
	require.NoError(t, err)

	after, err := env.totals.Get(env.ctx, "m1", "", now)
	require.NoError(t, err)
	assert.Equal(t, 180000.0, after.TotalCOPModelo)

	recalculated, err := env.totals.Recalculate(env.ctx, "m1", "", now)
	require.NoError(t, err)
	assert.Equal(t, after.TotalCOPModelo, recalculated.Result.TotalCOPModelo)

	cached, err := env.st.Totals.LatestInRange(env.ctx, "m1", "2025-03-01", "2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, 180000.0, cached.TotalCOPModelo)
}

func TestComputeIgnoresInvalidStoredPlatform(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	over := 1.5
	// Written around the repository, as a manual edit would be.
	require.NoError(t, env.db.Create(&models.Platform{ID: "rogue", Name: "Rogue", Currency: models.CurrencyUSD, DiscountFactor: &over, Active: true}).Error)

	rules, err := env.totals.Rules(env.ctx)
	require.NoError(t, err)
	for _, r := range rules {
		assert.NotEqual(t, "rogue", r.ID)
	}

	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"rogue": 100, "livejasmin": 100})

	comp, err := env.totals.Compute(env.ctx, "m1", env.clock.Current(now))
	require.NoError(t, err)
	require.Len(t, comp.Result.Platforms, 1)
	assert.Equal(t, "livejasmin", comp.Result.Platforms[0].PlatformID)
	assert.Equal(t, 100.0, comp.Result.TotalUSDBruto)
}

func TestRecalculateAllIsolatesModels(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	env.configure(t, "m2")
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000})

	result, err := env.totals.RecalculateAll(env.ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, "m1", result.Items[0].ModelID)
	assert.InDelta(t, 40, result.Items[0].TotalUSDModelo, 1e-9)

	_, err = env.totals.RecalculateAll(env.ctx, "not-a-date", now)
	assert.ErrorAs(t, err, new(*ValidationError))
}

func TestSyncMissingOnlyTouchesUncachedModels(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	env.configure(t, "m2")
	now := env.at(2025, 3, 10, 9, 0)
	env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000})

	// A value written without going through the service has no totals yet.
	require.NoError(t, env.st.LiveValues.Upsert(env.ctx, []models.LiveValue{
		{ModelID: "m2", PlatformID: "aw", PeriodDate: "2025-03-01", Value: 10},
	}))

	result, err := env.totals.SyncMissing(env.ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	assert.Equal(t, "m2", result.Items[0].ModelID)
	assert.True(t, result.Items[0].Success)

	result, err = env.totals.SyncMissing(env.ctx, now)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
}

func TestTotalsRequireModel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.totals.Get(env.ctx, "", "", env.at(2025, 3, 10, 9, 0))
	assert.ErrorAs(t, err, new(*ValidationError))
}
