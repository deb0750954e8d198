package business

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/models"
)

func TestReconcileKeepsLatestPerPlatform(t *testing.T) {
	t0 := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	rows := []models.LiveValue{
		{ID: 1, PlatformID: "big7", PeriodDate: "2025-03-03", Value: 10, UpdatedAt: t0},
		{ID: 2, PlatformID: "big7", PeriodDate: "2025-03-07", Value: 20, UpdatedAt: t0.Add(time.Hour)},
		{ID: 3, PlatformID: "aw", PeriodDate: "2025-03-01", Value: 5, UpdatedAt: t0},
		{ID: 4, PlatformID: "aw", PeriodDate: "2025-03-12", Value: 6, UpdatedAt: t0},
	}

	got := Reconcile(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "aw", got[0].PlatformID)
	assert.Equal(t, 6.0, got[0].Value, "equal timestamps fall back to the higher id")
	assert.Equal(t, 20.0, got[1].Value)
}

func TestSaveNormalizesToBucketDate(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	now := env.at(2025, 3, 20, 10, 0)

	out := env.save(t, "m1", "2025-03-09", now, map[string]float64{"chaturbate": 1000})
	assert.Equal(t, "2025-03-01", out.PeriodDate)
	require.Len(t, out.Values, 1)
	assert.Equal(t, "2025-03-01", out.Values[0].PeriodDate)

	for _, date := range []string{"2025-03-01", "2025-03-09", "2025-03-15"} {
		got, err := env.values.Get(env.ctx, "m1", date, now)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"chaturbate": 1000}, valueMap(got.Values), date)
	}

	got, err := env.values.Get(env.ctx, "m1", "2025-03-16", now)
	require.NoError(t, err)
	assert.Empty(t, got.Values)
}

func TestSaveDefaultsToCurrentPeriod(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")

	out := env.save(t, "m1", "", env.at(2025, 2, 27, 23, 30), map[string]float64{"aw": 10})
	assert.Equal(t, "2025-02-16", out.PeriodDate)
	assert.Equal(t, "16-31", out.PeriodType)
}

func TestSaveRefreshesTotals(t *testing.T) {
	env := newTestEnv(t)
	env.configure(t, "m1")
	now := env.at(2025, 3, 10, 9, 0)

	out := env.save(t, "m1", "", now, map[string]float64{"chaturbate": 1000, "big7": 100})
	require.NotNil(t, out.Totals)
	assert.InDelta(t, 134.84, out.Totals.Result.TotalUSDBruto, 1e-9)
	assert.InDelta(t, 107.872, out.Totals.Result.TotalUSDModelo, 1e-9)

	cached, err := env.st.Totals.LatestInRange(env.ctx, "m1", "2025-03-01", "2025-03-15")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.InDelta(t, 107.872, cached.TotalUSDModelo, 1e-9)
	assert.Equal(t, 420701.0, cached.TotalCOPModelo)
}

func TestSaveValidation(t *testing.T) {
	env := newTestEnv(t)
	now := env.at(2025, 3, 10, 9, 0)

	cases := []SaveRequest{
		{ModelID: "", Values: map[string]float64{"aw": 1}},
		{ModelID: "m1"},
		{ModelID: "m1", Values: map[string]float64{"aw": -1}},
		{ModelID: "m1", Values: map[string]float64{"": 1}},
		{ModelID: "m1", PeriodDate: "2025-13-01", Values: map[string]float64{"aw": 1}},
	}
	for _, req := range cases {
		_, err := env.values.Save(env.ctx, req, now)
		assert.ErrorAs(t, err, new(*ValidationError), "%+v", req)
	}
}

func TestSaveRejectsClosedPeriod(t *testing.T) {
	env := newTestEnv(t)
	now := env.at(2025, 3, 17, 9, 0)
	require.NoError(t, env.st.Closures.MarkCompleted(env.ctx, "2025-03-01", "1-15", nil, now))

	_, err := env.values.Save(env.ctx, SaveRequest{ModelID: "m1", PeriodDate: "2025-03-04", Values: map[string]float64{"aw": 1}}, now)
	var violation *FreezeViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, []string{"aw"}, violation.Platforms)
}

func TestGetRequiresModel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.values.Get(env.ctx, "", "", env.at(2025, 3, 10, 9, 0))
	assert.ErrorAs(t, err, new(*ValidationError))
}
