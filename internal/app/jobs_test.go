package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/handlers/business"
	"gestioncalc/internal/models"
)

func TestClosePreviousPeriodOnClosureDay(t *testing.T) {
	a := newTestApp(t, testSettings())
	ctx := context.Background()
	require.NoError(t, a.SeedPlatforms(ctx))
	require.NoError(t, a.Store.Configs.Save(ctx, &models.CalculatorConfig{ModelID: "m1", Active: true}))

	loc := a.Clock.Location()
	_, err := a.Values.Save(ctx, business.SaveRequest{
		ModelID: "m1", PeriodDate: "2025-03-20", Values: map[string]float64{"livejasmin": 50},
	}, time.Date(2025, 3, 20, 10, 0, 0, 0, loc))
	require.NoError(t, err)

	jobs := NewJobs(a, time.Minute)
	jobs.now = func() time.Time { return time.Date(2025, 4, 1, 0, 5, 0, 0, loc) }
	jobs.ClosePreviousPeriod()

	status, err := a.Store.Closures.Get(ctx, "2025-03-16", "16-31")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.ClosureCompleted, status.Status)

	rows, err := a.Store.History.List(ctx, "m1", "2025-03-16")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClosePreviousPeriodSkipsOrdinaryDays(t *testing.T) {
	a := newTestApp(t, testSettings())
	loc := a.Clock.Location()

	jobs := NewJobs(a, time.Minute)
	jobs.now = func() time.Time { return time.Date(2025, 4, 3, 0, 5, 0, 0, loc) }
	jobs.ClosePreviousPeriod()

	recent, err := a.Store.Closures.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestEarlyFreezeJobWritesMarkers(t *testing.T) {
	a := newTestApp(t, testSettings())
	ctx := context.Background()
	require.NoError(t, a.Store.Configs.Save(ctx, &models.CalculatorConfig{ModelID: "m1", Active: true}))
	loc := a.Clock.Location()

	jobs := NewJobs(a, time.Minute)
	jobs.now = func() time.Time { return time.Date(2025, 3, 15, 19, 0, 0, 0, loc) }
	jobs.EarlyFreeze()

	markers, err := a.Store.Frozen.List(ctx, "2025-03-01", "m1")
	require.NoError(t, err)
	assert.NotEmpty(t, markers)
}

func TestSchedulerRegistersConfiguredJobs(t *testing.T) {
	s := testSettings()
	s.ClosureSchedule = "0 5 0 1,16 * *"
	s.WatchdogSchedule = "0 30 0 1,16 * *"
	a := newTestApp(t, s)

	sched := NewScheduler(a, NewJobs(a, time.Minute))
	require.NoError(t, sched.Register(a.Schedules()))
	assert.Equal(t, 2, sched.Entries())
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	s := testSettings()
	s.SyncTotalsSchedule = "every now and then"
	a := newTestApp(t, s)

	sched := NewScheduler(a, NewJobs(a, time.Minute))
	assert.Error(t, sched.Register(a.Schedules()))
}
