// Package metrics holds the Prometheus collectors of the billing engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector. A nil *Registry is valid and records
// nothing, so services can run without metrics in tests and tools.
type Registry struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	LiveValueWrites *prometheus.CounterVec
	FreezeRejects   *prometheus.CounterVec
	TotalsRecalcs   *prometheus.CounterVec
	ClosureRuns     *prometheus.CounterVec
	ClosureModels   *prometheus.CounterVec
	ClosureDuration prometheus.Histogram
	ClosureArchived prometheus.Counter
	WatchdogAlerts  prometheus.Counter
}

// NewRegistry creates the collectors and registers them on reg when reg is
// not nil.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		LiveValueWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_live_value_writes_total",
				Help: "Live value save requests by result",
			},
			[]string{"result"},
		),
		FreezeRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_freeze_rejections_total",
				Help: "Writes rejected by the freeze guard by platform",
			},
			[]string{"platform"},
		),
		TotalsRecalcs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_totals_recalculations_total",
				Help: "Consolidated totals recalculations by result",
			},
			[]string{"result"},
		),
		ClosureRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_closure_runs_total",
				Help: "Period closure runs by outcome",
			},
			[]string{"outcome"},
		),
		ClosureModels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_closure_models_total",
				Help: "Models processed by period closure runs by result",
			},
			[]string{"result"},
		),
		ClosureDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_closure_duration_seconds",
				Help:    "Duration of period closure runs",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ClosureArchived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_closure_archived_rows_total",
				Help: "History rows written by period closure runs",
			},
		),
		WatchdogAlerts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_watchdog_alerts_total",
				Help: "Alerts raised because a period closure did not complete",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			r.HTTPRequests,
			r.HTTPDuration,
			r.LiveValueWrites,
			r.FreezeRejects,
			r.TotalsRecalcs,
			r.ClosureRuns,
			r.ClosureModels,
			r.ClosureDuration,
			r.ClosureArchived,
			r.WatchdogAlerts,
		)
	}
	return r
}

func (r *Registry) ObserveHTTP(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, status).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) LiveValueWrite(result string) {
	if r == nil {
		return
	}
	r.LiveValueWrites.WithLabelValues(result).Inc()
}

func (r *Registry) FreezeRejected(platforms []string) {
	if r == nil {
		return
	}
	for _, p := range platforms {
		r.FreezeRejects.WithLabelValues(p).Inc()
	}
}

func (r *Registry) TotalsRecalculated(result string) {
	if r == nil {
		return
	}
	r.TotalsRecalcs.WithLabelValues(result).Inc()
}

// ClosureRun records one finished closure run.
func (r *Registry) ClosureRun(outcome string, succeeded, failed, archived int, d time.Duration) {
	if r == nil {
		return
	}
	r.ClosureRuns.WithLabelValues(outcome).Inc()
	r.ClosureModels.WithLabelValues("succeeded").Add(float64(succeeded))
	r.ClosureModels.WithLabelValues("failed").Add(float64(failed))
	r.ClosureArchived.Add(float64(archived))
	r.ClosureDuration.Observe(d.Seconds())
}

func (r *Registry) WatchdogAlert() {
	if r == nil {
		return
	}
	r.WatchdogAlerts.Inc()
}
