package business

import (
	"context"
	"time"

	"gestioncalc/internal/models"
	"gestioncalc/internal/rates"
)

// LiveValueStore persists live values.
type LiveValueStore interface {
	Upsert(ctx context.Context, values []models.LiveValue) error
	ListInRange(ctx context.Context, modelID, from, to string) ([]models.LiveValue, error)
	ModelIDsInRange(ctx context.Context, from, to string) ([]string, error)
	DeleteExact(ctx context.Context, rows []models.LiveValue) (int64, error)
}

// FrozenStore persists frozen-platform markers.
type FrozenStore interface {
	Freeze(ctx context.Context, markers []models.FrozenPlatform) error
	List(ctx context.Context, periodDate, modelID string) ([]models.FrozenPlatform, error)
	Unfreeze(ctx context.Context, periodDate, modelID string, platformIDs []string) (int64, error)
	DeleteForModel(ctx context.Context, periodDate, modelID string) error
	PurgeThrough(ctx context.Context, periodDate string) (int64, error)
}

// HistoryStore persists archived values.
type HistoryStore interface {
	InsertNew(ctx context.Context, records []models.HistoryRecord) error
	List(ctx context.Context, modelID, periodDate string) ([]models.HistoryRecord, error)
	CountPeriod(ctx context.Context, periodDate, periodType string) (int64, error)
}

// ClosureStatusStore persists period closure statuses.
type ClosureStatusStore interface {
	Get(ctx context.Context, periodDate, periodType string) (*models.PeriodClosureStatus, error)
	MarkPending(ctx context.Context, periodDate, periodType string, meta models.JSONMap) error
	MarkCompleted(ctx context.Context, periodDate, periodType string, meta models.JSONMap, at time.Time) error
	Recent(ctx context.Context, limit int) ([]models.PeriodClosureStatus, error)
}

// TotalsStore persists the consolidated totals cache.
type TotalsStore interface {
	Upsert(ctx context.Context, totals models.ConsolidatedTotals) error
	LatestInRange(ctx context.Context, modelID, from, to string) (*models.ConsolidatedTotals, error)
	ModelIDsInRange(ctx context.Context, from, to string) ([]string, error)
	DeleteInRange(ctx context.Context, modelID, from, to string) error
}

// ConfigStore reads model calculator configurations.
type ConfigStore interface {
	Active(ctx context.Context) ([]models.CalculatorConfig, error)
	ActiveFor(ctx context.Context, modelID string) (*models.CalculatorConfig, error)
}

// PlatformStore reads platform rules.
type PlatformStore interface {
	List(ctx context.Context) ([]models.Platform, error)
}

// RateSource resolves the current conversion rates. It never fails.
type RateSource interface {
	Current(ctx context.Context) rates.Resolved
}

// EventPublisher sends JSON messages to a queue.
type EventPublisher interface {
	Publish(queueName string, message interface{}) error
}

// Queues used by the engine.
const (
	EventsQueue = "billing_events"
	AlertsQueue = "billing_alerts"
)
