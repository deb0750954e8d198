package business

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
	"gestioncalc/internal/rates"
	"gestioncalc/internal/store"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]interface{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][]interface{})}
}

func (p *recordingPublisher) Publish(queueName string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[queueName] = append(p.messages[queueName], message)
	return nil
}

func (p *recordingPublisher) count(queueName string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages[queueName])
}

// failingDeletes fails DeleteExact for the listed models.
type failingDeletes struct {
	LiveValueStore
	models map[string]bool
}

func (f *failingDeletes) DeleteExact(ctx context.Context, rows []models.LiveValue) (int64, error) {
	for _, row := range rows {
		if f.models[row.ModelID] {
			return 0, errors.New("connection reset by peer")
		}
	}
	return f.LiveValueStore.DeleteExact(ctx, rows)
}

type testEnv struct {
	ctx       context.Context
	db        *gorm.DB
	st        *store.Store
	clock     *period.Clock
	log       *logrus.Logger
	publisher *recordingPublisher
	rates     *rates.Provider
	guard     *FreezeGuard
	totals    *TotalsService
	values    *LiveValueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, store.AutoMigrate(db))

	clock, err := period.Load("America/Bogota", "Europe/Berlin")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		ctx:       context.Background(),
		db:        db,
		st:        store.New(db),
		clock:     clock,
		log:       log,
		publisher: newRecordingPublisher(),
	}

	platforms := make([]models.Platform, 0, len(calculator.DefaultRules))
	for _, r := range calculator.DefaultRules {
		platforms = append(platforms, r.ToModel())
	}
	require.NoError(t, env.st.Platforms.Seed(env.ctx, platforms))

	provider := rates.NewProvider(env.st.Rates, log)
	env.rates = provider
	env.guard = NewFreezeGuard(clock, env.st.Frozen, calculator.DefaultEarlyFreezePlatforms, DefaultFreezeGrace, log, nil)
	env.totals = NewTotalsService(clock, env.st.LiveValues, env.st.Totals, env.st.Configs, env.st.Platforms, provider, log, nil)
	env.values = NewLiveValueService(clock, env.st.LiveValues, env.st.Closures, env.guard, env.totals, log, nil)
	return env
}

func (e *testEnv) closure(values LiveValueStore) *ClosureEngine {
	if values == nil {
		values = e.st.LiveValues
	}
	return NewClosureEngine(ClosureDeps{
		Clock:      e.clock,
		Configs:    e.st.Configs,
		Values:     values,
		History:    e.st.History,
		Frozen:     e.st.Frozen,
		Totals:     e.st.Totals,
		Statuses:   e.st.Closures,
		Calculator: e.totals,
		Publisher:  e.publisher,
		Log:        e.log,
	})
}

// at builds a local (Bogota) instant.
func (e *testEnv) at(year, month, day, hour, min int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, 0, 0, e.clock.Location())
}

func (e *testEnv) configure(t *testing.T, modelID string, enabled ...string) {
	t.Helper()
	cfg := &models.CalculatorConfig{ModelID: modelID, Active: true}
	if len(enabled) > 0 {
		cfg.EnabledPlatforms = datatypes.JSONSlice[string](enabled)
	}
	require.NoError(t, e.st.Configs.Save(e.ctx, cfg))
}

func (e *testEnv) save(t *testing.T, modelID, periodDate string, now time.Time, values map[string]float64) *PeriodValues {
	t.Helper()
	out, err := e.values.Save(e.ctx, SaveRequest{ModelID: modelID, PeriodDate: periodDate, Values: values}, now)
	require.NoError(t, err)
	return out
}
