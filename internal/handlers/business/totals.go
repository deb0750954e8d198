package business

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
	"gestioncalc/internal/rates"
)

// Computation is one calculator run over the reconciled live values of a
// model in a period.
type Computation struct {
	ModelID     string                     `json:"model_id"`
	PeriodDate  string                     `json:"period_date"`
	PeriodType  string                     `json:"period_type"`
	Configured  bool                       `json:"configured"`
	Values      []models.LiveValue         `json:"values"`
	Result      calculator.Result          `json:"result"`
	RateSources map[models.RateKind]string `json:"rate_sources"`
}

// Totals converts the computation into a cache row.
func (c *Computation) Totals() models.ConsolidatedTotals {
	return models.ConsolidatedTotals{
		ModelID:        c.ModelID,
		PeriodDate:     c.PeriodDate,
		TotalUSDBruto:  c.Result.TotalUSDBruto,
		TotalUSDModelo: c.Result.TotalUSDModelo,
		TotalCOPModelo: c.Result.TotalCOPModelo,
	}
}

// TotalsService owns the single computation path: reconciled live values,
// platform rules, current rates and the model configuration go through
// calculator.ComputeTotals. The consolidated totals table only caches its
// output.
type TotalsService struct {
	clock     *period.Clock
	values    LiveValueStore
	totals    TotalsStore
	configs   ConfigStore
	platforms PlatformStore
	rates     RateSource
	log       logrus.FieldLogger
	metrics   *metrics.Registry
}

func NewTotalsService(clock *period.Clock, values LiveValueStore, totals TotalsStore, configs ConfigStore, platforms PlatformStore, rateSource RateSource, log logrus.FieldLogger, m *metrics.Registry) *TotalsService {
	return &TotalsService{
		clock:     clock,
		values:    values,
		totals:    totals,
		configs:   configs,
		platforms: platforms,
		rates:     rateSource,
		log:       log,
		metrics:   m,
	}
}

// Rules loads the platform rule table, falling back to the built-in rules.
func (s *TotalsService) Rules(ctx context.Context) ([]calculator.Rule, error) {
	platforms, err := s.platforms.List(ctx)
	if err != nil {
		return nil, persistence("list platforms", err)
	}
	rules, invalid := calculator.RulesFromModels(platforms)
	for _, err := range invalid {
		s.log.WithError(err).Warn("ignoring invalid platform rule")
	}
	return rules, nil
}

// Rates resolves the current conversion rates.
func (s *TotalsService) Rates(ctx context.Context) rates.Resolved {
	return s.rates.Current(ctx)
}

// Compute runs the calculator for a model in p. A model without an active
// configuration yields a zero result with Configured unset.
func (s *TotalsService) Compute(ctx context.Context, modelID string, p period.Period) (*Computation, error) {
	if modelID == "" {
		return nil, Validationf("modelId is required")
	}

	resolved := s.rates.Current(ctx)
	comp := &Computation{
		ModelID:     modelID,
		PeriodDate:  p.BucketDate(),
		PeriodType:  string(p.Type),
		Values:      []models.LiveValue{},
		Result:      calculator.Result{Rates: resolved.Rates, Platforms: []calculator.PlatformResult{}},
		RateSources: resolved.Sources,
	}

	cfg, err := s.configs.ActiveFor(ctx, modelID)
	if err != nil {
		return nil, persistence("load calculator config", err)
	}

	rows, err := s.values.ListInRange(ctx, modelID, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("list live values", err)
	}
	comp.Values = Reconcile(rows)

	if cfg == nil {
		return comp, nil
	}
	comp.Configured = true

	rules, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}
	comp.Result = calculator.ComputeTotals(rules, inputsFrom(comp.Values), resolved.Rates, modelConfig(cfg))
	return comp, nil
}

// Recalculate computes and caches the totals of a model. Unconfigured models
// are computed but not cached.
func (s *TotalsService) Recalculate(ctx context.Context, modelID, periodDate string, now time.Time) (*Computation, error) {
	p, err := s.clock.Resolve(periodDate, now)
	if err != nil {
		return nil, Validationf("invalid periodDate %q", periodDate)
	}

	comp, err := s.Compute(ctx, modelID, p)
	if err != nil {
		s.metrics.TotalsRecalculated("error")
		return nil, err
	}
	if !comp.Configured {
		s.metrics.TotalsRecalculated("not_configured")
		return comp, nil
	}

	if err := s.totals.Upsert(ctx, comp.Totals()); err != nil {
		s.metrics.TotalsRecalculated("error")
		return nil, persistence("save totals", err)
	}
	s.metrics.TotalsRecalculated("ok")
	return comp, nil
}

// Get returns the cached totals of a model. The cache is rebuilt when no row
// exists for the period or when the row predates the rates now in use.
func (s *TotalsService) Get(ctx context.Context, modelID, periodDate string, now time.Time) (*models.ConsolidatedTotals, error) {
	if modelID == "" {
		return nil, Validationf("modelId is required")
	}
	p, err := s.clock.Resolve(periodDate, now)
	if err != nil {
		return nil, Validationf("invalid periodDate %q", periodDate)
	}

	cached, err := s.totals.LatestInRange(ctx, modelID, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("load totals", err)
	}
	if cached != nil {
		changed := s.rates.Current(ctx).ChangedAt
		if changed.IsZero() || cached.UpdatedAt.After(changed) {
			return cached, nil
		}
		s.log.WithFields(logrus.Fields{
			"model_id":    modelID,
			"period_date": p.BucketDate(),
		}).Debug("cached totals predate current rates, recomputing")
	}

	comp, err := s.Recalculate(ctx, modelID, p.BucketDate(), now)
	if err != nil {
		return nil, err
	}
	totals := comp.Totals()
	return &totals, nil
}

// BatchItem is the outcome for one model of a batch operation.
type BatchItem struct {
	ModelID        string  `json:"model_id"`
	Success        bool    `json:"success"`
	TotalUSDModelo float64 `json:"total_usd_modelo,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// BatchResult summarises a batch operation. One model failing never stops
// the others.
type BatchResult struct {
	PeriodDate string      `json:"period_date"`
	Processed  int         `json:"processed"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Items      []BatchItem `json:"items"`
}

func (b *BatchResult) add(item BatchItem) {
	b.Processed++
	if item.Success {
		b.Succeeded++
	} else {
		b.Failed++
	}
	b.Items = append(b.Items, item)
}

// RecalculateAll recomputes the totals of every active model.
func (s *TotalsService) RecalculateAll(ctx context.Context, periodDate string, now time.Time) (*BatchResult, error) {
	p, err := s.clock.Resolve(periodDate, now)
	if err != nil {
		return nil, Validationf("invalid periodDate %q", periodDate)
	}
	configs, err := s.configs.Active(ctx)
	if err != nil {
		return nil, persistence("list active configs", err)
	}

	ids := make([]string, 0, len(configs))
	for _, cfg := range configs {
		ids = append(ids, cfg.ModelID)
	}
	return s.recalculateEach(ctx, ids, p, now), nil
}

// SyncMissing recomputes totals for models that have live values in the
// current period but no cached totals.
func (s *TotalsService) SyncMissing(ctx context.Context, now time.Time) (*BatchResult, error) {
	p := s.clock.Current(now)
	withValues, err := s.values.ModelIDsInRange(ctx, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("list models with values", err)
	}
	withTotals, err := s.totals.ModelIDsInRange(ctx, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("list models with totals", err)
	}

	cached := make(map[string]bool, len(withTotals))
	for _, id := range withTotals {
		cached[id] = true
	}
	var missing []string
	for _, id := range withValues {
		if !cached[id] {
			missing = append(missing, id)
		}
	}
	return s.recalculateEach(ctx, missing, p, now), nil
}

func (s *TotalsService) recalculateEach(ctx context.Context, modelIDs []string, p period.Period, now time.Time) *BatchResult {
	result := &BatchResult{PeriodDate: p.BucketDate(), Items: []BatchItem{}}
	for _, id := range modelIDs {
		comp, err := s.Recalculate(ctx, id, p.BucketDate(), now)
		switch {
		case err != nil:
			s.log.WithError(err).WithField("model_id", id).Error("totals recalculation failed")
			result.add(BatchItem{ModelID: id, Error: err.Error()})
		case !comp.Configured:
			result.add(BatchItem{ModelID: id, Error: ErrNotConfigured.Error()})
		default:
			result.add(BatchItem{ModelID: id, Success: true, TotalUSDModelo: comp.Result.TotalUSDModelo})
		}
	}
	return result
}
