package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/handlers/business"
)

// Jobs are the scheduled operations. Each run gets its own deadline.
type Jobs struct {
	app     *App
	timeout time.Duration
	now     func() time.Time
}

func NewJobs(a *App, timeout time.Duration) *Jobs {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Jobs{app: a, timeout: timeout, now: time.Now}
}

func (j *Jobs) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), j.timeout)
}

// ClosePreviousPeriod closes the period that ended at the last local
// midnight. Outside closure days it does nothing.
func (j *Jobs) ClosePreviousPeriod() {
	now := j.now()
	if !j.app.Clock.IsClosureDay(now) {
		return
	}
	ctx, cancel := j.context()
	defer cancel()

	p := j.app.Clock.Previous(now)
	log := j.app.Log.WithField("period_date", p.BucketDate())
	res, err := j.app.Closure.Close(ctx, business.CloseRequest{PeriodDate: p.BucketDate()}, now)
	if err != nil {
		log.WithError(err).Error("scheduled closure failed")
		return
	}
	log.WithFields(logrus.Fields{
		"run_id":            res.RunID,
		"already_completed": res.AlreadyCompleted,
		"models_failed":     res.ModelsFailed,
	}).Info("scheduled closure finished")
}

// EarlyFreeze writes the early-freeze markers once the foreign cutoff has
// passed.
func (j *Jobs) EarlyFreeze() {
	ctx, cancel := j.context()
	defer cancel()

	if _, err := j.app.Guard.RunEarlyFreeze(ctx, j.app.Store.Configs, j.now()); err != nil {
		j.app.Log.WithError(err).Error("early freeze failed")
	}
}

// Watchdog alerts when the previous period has not been closed.
func (j *Jobs) Watchdog() {
	ctx, cancel := j.context()
	defer cancel()

	report, err := j.app.Watchdog.Check(ctx, j.now())
	if err != nil {
		j.app.Log.WithError(err).Error("closure watchdog failed")
		return
	}
	if report.Alerted {
		j.app.Log.WithField("period_date", report.PeriodDate).Warn("closure watchdog raised an alert")
	}
}

// RefreshRates pulls upstream rates; failures keep the stored snapshots.
func (j *Jobs) RefreshRates() {
	ctx, cancel := j.context()
	defer cancel()

	got, err := j.app.Rates.Refresh(ctx)
	if err != nil {
		j.app.Log.WithError(err).Warn("rates refresh failed")
		return
	}
	j.app.Log.WithField("rates", got).Info("rates refreshed")
}

// SyncTotals rebuilds missing totals of the open period.
func (j *Jobs) SyncTotals() {
	ctx, cancel := j.context()
	defer cancel()

	res, err := j.app.Totals.SyncMissing(ctx, j.now())
	if err != nil {
		j.app.Log.WithError(err).Error("totals sync failed")
		return
	}
	if res.Processed > 0 {
		j.app.Log.WithFields(logrus.Fields{
			"period_date": res.PeriodDate,
			"succeeded":   res.Succeeded,
			"failed":      res.Failed,
		}).Info("missing totals rebuilt")
	}
}
