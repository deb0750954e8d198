package business

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gestioncalc/internal/calculator"
	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
	"gestioncalc/internal/rates"
)

const (
	DefaultModelTimeout = 30 * time.Second

	EventClosureCompleted = "period_closure.completed"
)

// CloseRequest selects the period to close. An empty PeriodDate closes the
// period that precedes the current one. Force re-runs a completed closure.
type CloseRequest struct {
	PeriodDate string `json:"periodDate"`
	Force      bool   `json:"force"`
}

// ModelOutcome is the closure result of one model.
type ModelOutcome struct {
	ModelID  string `json:"model_id"`
	Success  bool   `json:"success"`
	Archived int    `json:"archived"`
	Deleted  int64  `json:"deleted"`
	Error    string `json:"error,omitempty"`
}

// ClosureResult summarises a closure run.
type ClosureResult struct {
	RunID            string         `json:"run_id,omitempty"`
	PeriodDate       string         `json:"period_date"`
	PeriodType       string         `json:"period_type"`
	AlreadyCompleted bool           `json:"already_completed"`
	Forced           bool           `json:"forced"`
	ModelsProcessed  int            `json:"models_processed"`
	ModelsSucceeded  int            `json:"models_succeeded"`
	ModelsFailed     int            `json:"models_failed"`
	Archived         int            `json:"archived"`
	Models           []ModelOutcome `json:"models"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// FailedModels lists the models whose closure failed.
func (r *ClosureResult) FailedModels() []string {
	var ids []string
	for _, m := range r.Models {
		if !m.Success {
			ids = append(ids, m.ModelID)
		}
	}
	return ids
}

// ClosureEvent is published after every completed run.
type ClosureEvent struct {
	Type            string    `json:"type"`
	RunID           string    `json:"run_id"`
	PeriodDate      string    `json:"period_date"`
	PeriodType      string    `json:"period_type"`
	ModelsProcessed int       `json:"models_processed"`
	ModelsSucceeded int       `json:"models_succeeded"`
	ModelsFailed    int       `json:"models_failed"`
	FailedModels    []string  `json:"failed_models"`
	Archived        int       `json:"archived"`
	CompletedAt     time.Time `json:"completed_at"`
}

// ClosureDeps wires a ClosureEngine.
type ClosureDeps struct {
	Clock        *period.Clock
	Configs      ConfigStore
	Values       LiveValueStore
	History      HistoryStore
	Frozen       FrozenStore
	Totals       TotalsStore
	Statuses     ClosureStatusStore
	Calculator   *TotalsService
	Publisher    EventPublisher
	Log          logrus.FieldLogger
	Metrics      *metrics.Registry
	ModelTimeout time.Duration
}

// ClosureEngine archives the live values of an ended period into history
// and clears them. For every model the archive is written and verified
// before anything is deleted, and a failing model never stops the others.
type ClosureEngine struct {
	ClosureDeps
}

func NewClosureEngine(deps ClosureDeps) *ClosureEngine {
	if deps.ModelTimeout <= 0 {
		deps.ModelTimeout = DefaultModelTimeout
	}
	return &ClosureEngine{ClosureDeps: deps}
}

// Close runs the closure of one period. Running it again after completion
// is a no-op unless Force is set; a forced run only archives what is not
// archived yet.
func (e *ClosureEngine) Close(ctx context.Context, req CloseRequest, now time.Time) (*ClosureResult, error) {
	p := e.Clock.Previous(now)
	if req.PeriodDate != "" {
		var err error
		if p, err = e.Clock.ForDate(req.PeriodDate); err != nil {
			return nil, Validationf("invalid periodDate %q", req.PeriodDate)
		}
	}
	if now.Before(e.Clock.FullCloseAt(p)) {
		return nil, Validationf("period %s has not ended yet", p)
	}

	result := &ClosureResult{
		PeriodDate: p.BucketDate(),
		PeriodType: string(p.Type),
		Forced:     req.Force,
		Models:     []ModelOutcome{},
		StartedAt:  now.UTC(),
	}
	log := e.Log.WithFields(logrus.Fields{"period_date": result.PeriodDate, "period_type": result.PeriodType})

	status, err := e.Statuses.Get(ctx, result.PeriodDate, result.PeriodType)
	if err != nil {
		return nil, persistence("load closure status", err)
	}
	if status != nil && status.Status == models.ClosureCompleted && !req.Force {
		result.AlreadyCompleted = true
		result.CompletedAt = status.CompletedAt
		e.Metrics.ClosureRun("already_completed", 0, 0, 0, 0)
		log.Info("period closure already completed")
		return result, nil
	}

	result.RunID = uuid.New().String()
	log = log.WithField("run_id", result.RunID)
	started := time.Now()

	err = e.Statuses.MarkPending(ctx, result.PeriodDate, result.PeriodType, models.JSONMap{
		"run_id":     result.RunID,
		"started_at": result.StartedAt,
	})
	if err != nil {
		return nil, persistence("mark closure pending", err)
	}

	targets, err := e.targets(ctx, p)
	if err != nil {
		return nil, err
	}
	rules, err := e.Calculator.Rules(ctx)
	if err != nil {
		return nil, err
	}
	resolved := e.Calculator.Rates(ctx)

	log.WithField("models", len(targets)).Info("period closure started")

	for _, t := range targets {
		outcome := e.runModel(ctx, t, p, rules, resolved, now)
		result.ModelsProcessed++
		if outcome.Success {
			result.ModelsSucceeded++
			result.Archived += outcome.Archived
			log.WithFields(logrus.Fields{
				"model_id": outcome.ModelID,
				"archived": outcome.Archived,
				"deleted":  outcome.Deleted,
			}).Info("model closed")
		} else {
			result.ModelsFailed++
			log.WithField("model_id", outcome.ModelID).WithField("error", outcome.Error).Error("model closure failed")
		}
		result.Models = append(result.Models, outcome)
	}

	if n, err := e.Frozen.PurgeThrough(ctx, result.PeriodDate); err != nil {
		log.WithError(err).Warn("purge frozen markers failed")
	} else if n > 0 {
		log.WithField("markers", n).Debug("frozen markers purged")
	}

	completedAt := now.UTC()
	failed := result.FailedModels()
	meta := models.JSONMap{
		"run_id":           result.RunID,
		"started_at":       result.StartedAt,
		"forced":           req.Force,
		"models_processed": result.ModelsProcessed,
		"models_succeeded": result.ModelsSucceeded,
		"models_failed":    result.ModelsFailed,
		"archived":         result.Archived,
		"failed_models":    failed,
	}
	if err := e.Statuses.MarkCompleted(ctx, result.PeriodDate, result.PeriodType, meta, completedAt); err != nil {
		return nil, persistence("mark closure completed", err)
	}
	result.CompletedAt = &completedAt

	outcome := "completed"
	if result.ModelsFailed > 0 {
		outcome = "completed_with_failures"
	}
	e.Metrics.ClosureRun(outcome, result.ModelsSucceeded, result.ModelsFailed, result.Archived, time.Since(started))
	e.publish(log, result, failed)

	log.WithFields(logrus.Fields{
		"models_processed": result.ModelsProcessed,
		"models_succeeded": result.ModelsSucceeded,
		"models_failed":    result.ModelsFailed,
		"archived":         result.Archived,
	}).Info("period closure completed")
	return result, nil
}

type closureTarget struct {
	modelID string
	config  *models.CalculatorConfig
}

// targets returns every active model plus any model that still holds live
// values in p, ordered by model id.
func (e *ClosureEngine) targets(ctx context.Context, p period.Period) ([]closureTarget, error) {
	configs, err := e.Configs.Active(ctx)
	if err != nil {
		return nil, persistence("list active configs", err)
	}
	withValues, err := e.Values.ModelIDsInRange(ctx, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("list models with values", err)
	}

	byModel := make(map[string]*models.CalculatorConfig, len(configs))
	for i := range configs {
		byModel[configs[i].ModelID] = &configs[i]
	}
	for _, id := range withValues {
		if _, ok := byModel[id]; !ok {
			byModel[id] = nil
		}
	}

	targets := make([]closureTarget, 0, len(byModel))
	for id, cfg := range byModel {
		targets = append(targets, closureTarget{modelID: id, config: cfg})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].modelID < targets[j].modelID })
	return targets, nil
}

func (e *ClosureEngine) runModel(ctx context.Context, t closureTarget, p period.Period, rules []calculator.Rule, resolved rates.Resolved, now time.Time) (out ModelOutcome) {
	ctx, cancel := context.WithTimeout(ctx, e.ModelTimeout)
	defer cancel()

	out.ModelID = t.modelID
	defer func() {
		if r := recover(); r != nil {
			out = ModelOutcome{ModelID: t.modelID, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	archived, deleted, err := e.closeModel(ctx, t, p, rules, resolved, now)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Success = true
	out.Archived = archived
	out.Deleted = deleted
	return out
}

func (e *ClosureEngine) closeModel(ctx context.Context, t closureTarget, p period.Period, rules []calculator.Rule, resolved rates.Resolved, now time.Time) (int, int64, error) {
	rows, err := e.Values.ListInRange(ctx, t.modelID, p.BucketDate(), p.EndDate())
	if err != nil {
		return 0, 0, fmt.Errorf("list live values: %w", err)
	}

	var deleted int64
	latest := Reconcile(rows)
	if len(latest) > 0 {
		if err := e.archive(ctx, t, p, latest, rules, resolved, now); err != nil {
			return 0, 0, err
		}
		if deleted, err = e.Values.DeleteExact(ctx, rows); err != nil {
			return 0, 0, fmt.Errorf("delete archived live values: %w", err)
		}
	}

	if err := e.Totals.DeleteInRange(ctx, t.modelID, p.BucketDate(), p.EndDate()); err != nil {
		e.Log.WithError(err).WithField("model_id", t.modelID).Warn("clear cached totals failed")
	}
	if err := e.Frozen.DeleteForModel(ctx, p.BucketDate(), t.modelID); err != nil {
		e.Log.WithError(err).WithField("model_id", t.modelID).Warn("clear frozen markers failed")
	}
	return len(latest), deleted, nil
}

// archive writes one history row per platform and checks that every value
// is present in history before the caller may delete anything.
func (e *ClosureEngine) archive(ctx context.Context, t closureTarget, p period.Period, latest []models.LiveValue, rules []calculator.Rule, resolved rates.Resolved, now time.Time) error {
	res := calculator.ComputeTotals(rules, inputsFrom(latest), resolved.Rates, modelConfig(t.config))
	derived := make(map[string]calculator.PlatformResult, len(res.Platforms))
	for _, pr := range res.Platforms {
		derived[pr.PlatformID] = pr
	}

	records := make([]models.HistoryRecord, 0, len(latest))
	for _, row := range latest {
		d := derived[row.PlatformID]
		records = append(records, models.HistoryRecord{
			ModelID:            t.modelID,
			PlatformID:         row.PlatformID,
			PeriodDate:         p.BucketDate(),
			PeriodType:         string(p.Type),
			Value:              row.Value,
			ValueUSDBruto:      d.USDBruto,
			ValueUSDModelo:     d.USDModelo,
			ValueCOPModelo:     d.COPModelo,
			PlatformPercentage: d.Percentage,
			RateEURUSD:         res.Rates.EURUSD,
			RateGBPUSD:         res.Rates.GBPUSD,
			RateUSDCOP:         res.Rates.USDCOP,
			ArchivedAt:         now.UTC(),
			OriginalUpdatedAt:  row.UpdatedAt,
		})
	}
	if err := e.History.InsertNew(ctx, records); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	stored, err := e.History.List(ctx, t.modelID, p.BucketDate())
	if err != nil {
		return fmt.Errorf("verify history: %w", err)
	}
	archived := make(map[string]float64, len(stored))
	for _, rec := range stored {
		if rec.PeriodType == string(p.Type) {
			archived[rec.PlatformID] = rec.Value
		}
	}
	for _, row := range latest {
		v, ok := archived[row.PlatformID]
		if !ok {
			return fmt.Errorf("verify history: %s missing after insert", row.PlatformID)
		}
		if math.Abs(v-row.Value) > 1e-9 {
			return fmt.Errorf("verify history: %s archived as %v but live value is %v", row.PlatformID, v, row.Value)
		}
	}
	return nil
}

func (e *ClosureEngine) publish(log logrus.FieldLogger, result *ClosureResult, failed []string) {
	if e.Publisher == nil {
		return
	}
	if failed == nil {
		failed = []string{}
	}
	event := ClosureEvent{
		Type:            EventClosureCompleted,
		RunID:           result.RunID,
		PeriodDate:      result.PeriodDate,
		PeriodType:      result.PeriodType,
		ModelsProcessed: result.ModelsProcessed,
		ModelsSucceeded: result.ModelsSucceeded,
		ModelsFailed:    result.ModelsFailed,
		FailedModels:    failed,
		Archived:        result.Archived,
		CompletedAt:     *result.CompletedAt,
	}
	if err := e.Publisher.Publish(EventsQueue, event); err != nil {
		log.WithError(err).Warn("publish closure event failed")
	}
}

// StatusReport describes the clock and the closure state of the period
// that precedes the current one.
type StatusReport struct {
	Clock           period.Snapshot              `json:"clock"`
	PreviousStatus  *models.PeriodClosureStatus  `json:"previous_status"`
	PreviousClosed  bool                         `json:"previous_closed"`
	ArchivedRecords int64                        `json:"archived_records"`
	Recent          []models.PeriodClosureStatus `json:"recent"`
}

// Status reports the closure state at now.
func (e *ClosureEngine) Status(ctx context.Context, now time.Time) (*StatusReport, error) {
	snap := e.Clock.Snapshot(now)
	prev := snap.Previous

	status, err := e.Statuses.Get(ctx, prev.BucketDate(), string(prev.Type))
	if err != nil {
		return nil, persistence("load closure status", err)
	}
	count, err := e.History.CountPeriod(ctx, prev.BucketDate(), string(prev.Type))
	if err != nil {
		return nil, persistence("count history", err)
	}
	recent, err := e.Statuses.Recent(ctx, 10)
	if err != nil {
		return nil, persistence("list closure statuses", err)
	}

	return &StatusReport{
		Clock:           snap,
		PreviousStatus:  status,
		PreviousClosed:  status != nil && status.Status == models.ClosureCompleted,
		ArchivedRecords: count,
		Recent:          recent,
	}, nil
}
