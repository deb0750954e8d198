package business

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/metrics"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
)

// Alert is published when a period closure did not complete in time.
type Alert struct {
	Severity   string    `json:"severity"`
	Kind       string    `json:"kind"`
	PeriodDate string    `json:"period_date"`
	PeriodType string    `json:"period_type"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	RaisedAt   time.Time `json:"raised_at"`
}

// WatchdogReport is the outcome of one watchdog check.
type WatchdogReport struct {
	Checked    bool   `json:"checked"`
	PeriodDate string `json:"period_date"`
	PeriodType string `json:"period_type"`
	Status     string `json:"status"`
	Alerted    bool   `json:"alerted"`
}

// Watchdog verifies on closure days that the previous period was closed.
type Watchdog struct {
	clock     *period.Clock
	statuses  ClosureStatusStore
	publisher EventPublisher
	log       logrus.FieldLogger
	metrics   *metrics.Registry
}

func NewWatchdog(clock *period.Clock, statuses ClosureStatusStore, publisher EventPublisher, log logrus.FieldLogger, m *metrics.Registry) *Watchdog {
	return &Watchdog{clock: clock, statuses: statuses, publisher: publisher, log: log, metrics: m}
}

// Check raises a critical alert when now is a closure day and the previous
// period has no completed closure. Outside closure days it does nothing.
func (w *Watchdog) Check(ctx context.Context, now time.Time) (*WatchdogReport, error) {
	p := w.clock.Previous(now)
	report := &WatchdogReport{PeriodDate: p.BucketDate(), PeriodType: string(p.Type)}
	if !w.clock.IsClosureDay(now) {
		return report, nil
	}
	report.Checked = true

	status, err := w.statuses.Get(ctx, report.PeriodDate, report.PeriodType)
	if err != nil {
		return nil, persistence("load closure status", err)
	}
	report.Status = "missing"
	if status != nil {
		report.Status = string(status.Status)
	}
	if status != nil && status.Status == models.ClosureCompleted {
		return report, nil
	}

	alert := Alert{
		Severity:   "critical",
		Kind:       "period_closure_incomplete",
		PeriodDate: report.PeriodDate,
		PeriodType: report.PeriodType,
		Status:     report.Status,
		Message:    "period closure has not completed for " + p.String(),
		RaisedAt:   now.UTC(),
	}
	w.metrics.WatchdogAlert()
	w.log.WithFields(logrus.Fields{
		"period_date": alert.PeriodDate,
		"period_type": alert.PeriodType,
		"status":      alert.Status,
	}).Error("period closure incomplete")

	report.Alerted = true
	if w.publisher != nil {
		if err := w.publisher.Publish(AlertsQueue, alert); err != nil {
			w.log.WithError(err).Warn("publish watchdog alert failed")
		}
	}
	return report, nil
}
