// Package app wires the billing services for the api, scheduler and CLI
// binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/handlers"
	"gestioncalc/internal/handlers/business"
	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
	"gestioncalc/internal/rates"
	"gestioncalc/internal/store"
	"gestioncalc/pkg/config"
)

// App holds every service of the billing engine.
type App struct {
	Settings *config.Settings
	Log      *logrus.Logger
	Clock    *period.Clock
	Store    *store.Store
	Metrics  *metrics.Registry
	Rates    *rates.Provider
	Guard    *business.FreezeGuard
	Totals   *business.TotalsService
	Values   *business.LiveValueService
	Closure  *business.ClosureEngine
	Watchdog *business.Watchdog
}

// Build assembles the services on db. publisher may be nil when RabbitMQ is
// not configured; reg may be nil to skip metric registration.
func Build(s *config.Settings, db *gorm.DB, log *logrus.Logger, publisher *config.Publisher, reg prometheus.Registerer) (*App, error) {
	clock, err := period.Load(s.LocalTimezone, s.ForeignTimezone)
	if err != nil {
		return nil, fmt.Errorf("load clock: %w", err)
	}

	st := store.New(db)
	m := metrics.NewRegistry(reg)

	opts := []rates.Option{
		rates.WithDefaults(calculator.Rates{USDCOP: s.DefaultUSDCOP, EURUSD: s.DefaultEURUSD, GBPUSD: s.DefaultGBPUSD}),
		rates.WithCache(rates.NewAutoCache(s.RedisAddr), s.RatesCacheTTL),
	}
	if s.RatesAPIURL != "" {
		opts = append(opts, rates.WithFetcher(rates.NewHTTPFetcher(s.RatesAPIURL, s.RatesFetchTimeout)))
	}
	provider := rates.NewProvider(st.Rates, log, opts...)

	// A nil *Publisher stored in the interface would not compare equal to nil.
	var events business.EventPublisher
	if publisher != nil {
		events = publisher
	}

	early := s.EarlyFreezeList()
	if len(early) == 0 {
		early = calculator.DefaultEarlyFreezePlatforms
	}

	guard := business.NewFreezeGuard(clock, st.Frozen, early, s.FreezeGrace(), log, m)
	totals := business.NewTotalsService(clock, st.LiveValues, st.Totals, st.Configs, st.Platforms, provider, log, m)

	return &App{
		Settings: s,
		Log:      log,
		Clock:    clock,
		Store:    st,
		Metrics:  m,
		Rates:    provider,
		Guard:    guard,
		Totals:   totals,
		Values:   business.NewLiveValueService(clock, st.LiveValues, st.Closures, guard, totals, log, m),
		Closure: business.NewClosureEngine(business.ClosureDeps{
			Clock:        clock,
			Configs:      st.Configs,
			Values:       st.LiveValues,
			History:      st.History,
			Frozen:       st.Frozen,
			Totals:       st.Totals,
			Statuses:     st.Closures,
			Calculator:   totals,
			Publisher:    events,
			Log:          log,
			Metrics:      m,
			ModelTimeout: s.ClosureModelTimeout,
		}),
		Watchdog: business.NewWatchdog(clock, st.Closures, events, log, m),
	}, nil
}

// SeedPlatforms inserts the built-in platform rules that are missing.
func (a *App) SeedPlatforms(ctx context.Context) error {
	platforms := make([]models.Platform, 0, len(calculator.DefaultRules))
	for _, r := range calculator.DefaultRules {
		platforms = append(platforms, r.ToModel())
	}
	return a.Store.Platforms.Seed(ctx, platforms)
}

// Handler returns the HTTP handler over the services.
func (a *App) Handler() *handlers.Handler {
	return &handlers.Handler{
		Clock:    a.Clock,
		Values:   a.Values,
		Totals:   a.Totals,
		Guard:    a.Guard,
		Closure:  a.Closure,
		Watchdog: a.Watchdog,
		Configs:  a.Store.Configs,
		History:  a.Store.History,
		Rates:    a.Rates,
		Log:      a.Log,
		Now:      time.Now,
	}
}
