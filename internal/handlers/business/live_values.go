package business

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
)

// SaveRequest carries the values a model submits for one period.
type SaveRequest struct {
	ModelID    string
	PeriodDate string
	Values     map[string]float64
}

// PeriodValues is the reconciled view of a model's live values.
type PeriodValues struct {
	ModelID    string             `json:"model_id"`
	PeriodDate string             `json:"period_date"`
	PeriodType string             `json:"period_type"`
	Values     []models.LiveValue `json:"values"`
	Totals     *Computation       `json:"totals,omitempty"`
}

// LiveValueService reads and writes live values.
type LiveValueService struct {
	clock    *period.Clock
	values   LiveValueStore
	statuses ClosureStatusStore
	guard    *FreezeGuard
	totals   *TotalsService
	log      logrus.FieldLogger
	metrics  *metrics.Registry
}

func NewLiveValueService(clock *period.Clock, values LiveValueStore, statuses ClosureStatusStore, guard *FreezeGuard, totals *TotalsService, log logrus.FieldLogger, m *metrics.Registry) *LiveValueService {
	return &LiveValueService{
		clock:    clock,
		values:   values,
		statuses: statuses,
		guard:    guard,
		totals:   totals,
		log:      log,
		metrics:  m,
	}
}

// Get returns the reconciled values of a model for the period containing
// periodDate, or the current period when periodDate is empty.
func (s *LiveValueService) Get(ctx context.Context, modelID, periodDate string, now time.Time) (*PeriodValues, error) {
	if modelID == "" {
		return nil, Validationf("modelId is required")
	}
	p, err := s.clock.Resolve(periodDate, now)
	if err != nil {
		return nil, Validationf("invalid periodDate %q", periodDate)
	}
	rows, err := s.current(ctx, modelID, p)
	if err != nil {
		return nil, err
	}
	return &PeriodValues{
		ModelID:    modelID,
		PeriodDate: p.BucketDate(),
		PeriodType: string(p.Type),
		Values:     rows,
	}, nil
}

func (s *LiveValueService) current(ctx context.Context, modelID string, p period.Period) ([]models.LiveValue, error) {
	rows, err := s.values.ListInRange(ctx, modelID, p.BucketDate(), p.EndDate())
	if err != nil {
		return nil, persistence("list live values", err)
	}
	return Reconcile(rows), nil
}

// Save validates and stores values under the bucket date of their period,
// then refreshes the model's cached totals. Writes that change a frozen
// platform are rejected as a whole with a FreezeViolation.
func (s *LiveValueService) Save(ctx context.Context, req SaveRequest, now time.Time) (*PeriodValues, error) {
	result, err := s.save(ctx, req, now)
	switch {
	case err == nil:
		s.metrics.LiveValueWrite("ok")
	case errors.As(err, new(*FreezeViolation)):
		s.metrics.LiveValueWrite("frozen")
	case errors.As(err, new(*ValidationError)):
		s.metrics.LiveValueWrite("invalid")
	default:
		s.metrics.LiveValueWrite("error")
	}
	return result, err
}

func (s *LiveValueService) save(ctx context.Context, req SaveRequest, now time.Time) (*PeriodValues, error) {
	if req.ModelID == "" {
		return nil, Validationf("modelId is required")
	}
	if len(req.Values) == 0 {
		return nil, Validationf("values must not be empty")
	}
	for platformID, v := range req.Values {
		if platformID == "" {
			return nil, Validationf("platform id must not be empty")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, Validationf("value for %s is not a number", platformID)
		}
		if v < 0 {
			return nil, Validationf("value for %s must not be negative", platformID)
		}
	}

	p, err := s.clock.Resolve(req.PeriodDate, now)
	if err != nil {
		return nil, Validationf("invalid periodDate %q", req.PeriodDate)
	}

	status, err := s.statuses.Get(ctx, p.BucketDate(), string(p.Type))
	if err != nil {
		return nil, persistence("load closure status", err)
	}
	if status != nil && status.Status == models.ClosureCompleted {
		return nil, &FreezeViolation{PeriodDate: p.BucketDate(), Platforms: sortedKeys(req.Values)}
	}

	current, err := s.current(ctx, req.ModelID, p)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, req.ModelID, p, req.Values, valueMap(current), now); err != nil {
		return nil, err
	}

	rows := make([]models.LiveValue, 0, len(req.Values))
	for _, platformID := range sortedKeys(req.Values) {
		rows = append(rows, models.LiveValue{
			ModelID:    req.ModelID,
			PlatformID: platformID,
			PeriodDate: p.BucketDate(),
			Value:      req.Values[platformID],
		})
	}
	if err := s.values.Upsert(ctx, rows); err != nil {
		return nil, persistence("save live values", err)
	}

	s.log.WithFields(logrus.Fields{
		"model_id":    req.ModelID,
		"period_date": p.BucketDate(),
		"platforms":   len(rows),
	}).Info("live values saved")

	out := &PeriodValues{ModelID: req.ModelID, PeriodDate: p.BucketDate(), PeriodType: string(p.Type)}
	if out.Values, err = s.current(ctx, req.ModelID, p); err != nil {
		return nil, err
	}

	// The values are stored; a failed cache refresh is repaired by the
	// sync job.
	comp, err := s.totals.Recalculate(ctx, req.ModelID, p.BucketDate(), now)
	if err != nil {
		s.log.WithError(err).WithField("model_id", req.ModelID).Warn("totals refresh after save failed")
	} else {
		out.Totals = comp
	}
	return out, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
