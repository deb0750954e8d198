package business

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
)

const (
	// FreezeEpsilon is the largest change still accepted on a frozen
	// platform. Clients resend unchanged values with float noise.
	FreezeEpsilon = 0.01

	DefaultFreezeGrace = 15 * time.Minute
)

// Frozen reasons reported per platform.
const (
	FrozenByCutoff = "cutoff"
	FrozenByMarker = "marker"
)

// FreezeGuard decides which platforms of a model may no longer change within
// a period. A platform is frozen when an explicit marker exists or when it
// belongs to the early-freeze set and the foreign-midnight cutoff plus grace
// has passed.
type FreezeGuard struct {
	clock   *period.Clock
	frozen  FrozenStore
	early   map[string]bool
	grace   time.Duration
	log     logrus.FieldLogger
	metrics *metrics.Registry
}

func NewFreezeGuard(clock *period.Clock, frozen FrozenStore, earlyPlatforms []string, grace time.Duration, log logrus.FieldLogger, m *metrics.Registry) *FreezeGuard {
	early := make(map[string]bool, len(earlyPlatforms))
	for _, id := range earlyPlatforms {
		early[id] = true
	}
	if grace < 0 {
		grace = 0
	}
	return &FreezeGuard{clock: clock, frozen: frozen, early: early, grace: grace, log: log, metrics: m}
}

// EarlyPlatforms returns the early-freeze set, sorted.
func (g *FreezeGuard) EarlyPlatforms() []string {
	ids := make([]string, 0, len(g.early))
	for id := range g.early {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cutoff is the instant after which early-freeze platforms of p are frozen.
func (g *FreezeGuard) Cutoff(p period.Period) time.Time {
	return g.clock.EarlyFreezeAt(p).Add(g.grace)
}

// CutoffPassed reports whether now is at or after the cutoff of p.
func (g *FreezeGuard) CutoffPassed(p period.Period, now time.Time) bool {
	return !now.Before(g.Cutoff(p))
}

// FrozenPlatforms returns the frozen platforms of a model in p with the
// reason each one is frozen. Markers win over the cutoff.
func (g *FreezeGuard) FrozenPlatforms(ctx context.Context, modelID string, p period.Period, now time.Time) (map[string]string, error) {
	out := make(map[string]string)
	if g.CutoffPassed(p, now) {
		for id := range g.early {
			out[id] = FrozenByCutoff
		}
	}

	markers, err := g.frozen.List(ctx, p.BucketDate(), modelID)
	if err != nil {
		return nil, persistence("list frozen platforms", err)
	}
	for _, m := range markers {
		out[m.PlatformID] = FrozenByMarker
	}
	return out, nil
}

// Check validates incoming values against the current ones. A frozen
// platform may only be rewritten with a value within FreezeEpsilon of its
// current value; a missing current value counts as zero.
func (g *FreezeGuard) Check(ctx context.Context, modelID string, p period.Period, incoming, current map[string]float64, now time.Time) error {
	frozen, err := g.FrozenPlatforms(ctx, modelID, p, now)
	if err != nil {
		return err
	}
	if len(frozen) == 0 {
		return nil
	}

	var violated []string
	for platformID, value := range incoming {
		if _, ok := frozen[platformID]; !ok {
			continue
		}
		if math.Abs(value-current[platformID]) > FreezeEpsilon+1e-9 {
			violated = append(violated, platformID)
		}
	}
	if len(violated) == 0 {
		return nil
	}

	sort.Strings(violated)
	g.metrics.FreezeRejected(violated)
	g.log.WithFields(logrus.Fields{
		"model_id":    modelID,
		"period_date": p.BucketDate(),
		"platforms":   violated,
	}).Warn("rejected write to frozen platforms")
	return &FreezeViolation{PeriodDate: p.BucketDate(), Platforms: violated}
}

// Freeze creates manual markers.
func (g *FreezeGuard) Freeze(ctx context.Context, modelID string, p period.Period, platformIDs []string, now time.Time) error {
	if modelID == "" || len(platformIDs) == 0 {
		return Validationf("modelId and platformIds are required")
	}
	markers := make([]models.FrozenPlatform, 0, len(platformIDs))
	for _, id := range platformIDs {
		markers = append(markers, models.FrozenPlatform{
			PeriodDate: p.BucketDate(),
			ModelID:    modelID,
			PlatformID: id,
			Source:     models.FreezeSourceManual,
			FrozenAt:   now.UTC(),
		})
	}
	return persistence("freeze platforms", g.frozen.Freeze(ctx, markers))
}

// Unfreeze removes markers. Platforms frozen by the cutoff stay frozen.
func (g *FreezeGuard) Unfreeze(ctx context.Context, modelID string, p period.Period, platformIDs []string) (int64, error) {
	if modelID == "" || len(platformIDs) == 0 {
		return 0, Validationf("modelId and platformIds are required")
	}
	n, err := g.frozen.Unfreeze(ctx, p.BucketDate(), modelID, platformIDs)
	return n, persistence("unfreeze platforms", err)
}

// EarlyFreezeReport summarises one early-freeze run.
type EarlyFreezeReport struct {
	PeriodDate string    `json:"period_date"`
	PeriodType string    `json:"period_type"`
	Cutoff     time.Time `json:"cutoff"`
	Due        bool      `json:"due"`
	Models     int       `json:"models"`
	Markers    int       `json:"markers"`
}

// RunEarlyFreeze writes auto markers for every active model and early-freeze
// platform of the current period once its cutoff has passed. Markers that
// already exist are left alone, so the job can run repeatedly.
func (g *FreezeGuard) RunEarlyFreeze(ctx context.Context, configs ConfigStore, now time.Time) (*EarlyFreezeReport, error) {
	p := g.clock.Current(now)
	report := &EarlyFreezeReport{
		PeriodDate: p.BucketDate(),
		PeriodType: string(p.Type),
		Cutoff:     g.Cutoff(p),
		Due:        g.CutoffPassed(p, now),
	}
	if !report.Due {
		return report, nil
	}

	active, err := configs.Active(ctx)
	if err != nil {
		return nil, persistence("list active configs", err)
	}

	var markers []models.FrozenPlatform
	for _, cfg := range active {
		enabled := make(map[string]bool, len(cfg.EnabledPlatforms))
		for _, id := range cfg.EnabledPlatforms {
			enabled[id] = true
		}
		for _, id := range g.EarlyPlatforms() {
			if len(enabled) > 0 && !enabled[id] {
				continue
			}
			markers = append(markers, models.FrozenPlatform{
				PeriodDate: p.BucketDate(),
				ModelID:    cfg.ModelID,
				PlatformID: id,
				Source:     models.FreezeSourceAuto,
				FrozenAt:   now.UTC(),
			})
		}
	}
	if err := g.frozen.Freeze(ctx, markers); err != nil {
		return nil, persistence("write early freeze markers", err)
	}

	report.Models = len(active)
	report.Markers = len(markers)
	g.log.WithFields(logrus.Fields{
		"period_date": report.PeriodDate,
		"models":      report.Models,
		"markers":     report.Markers,
	}).Info("early freeze applied")
	return report, nil
}
