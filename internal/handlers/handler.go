package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/handlers/business"
	"gestioncalc/internal/models"
	"gestioncalc/internal/period"
	"gestioncalc/internal/rates"
)

// RateAdmin reads and administers conversion rates.
type RateAdmin interface {
	Current(ctx context.Context) rates.Resolved
	Set(ctx context.Context, kind models.RateKind, value float64, source string) (*models.Rate, error)
	Refresh(ctx context.Context) (map[models.RateKind]float64, error)
}

// Handler serves the calculator and rates endpoints.
type Handler struct {
	Clock    *period.Clock
	Values   *business.LiveValueService
	Totals   *business.TotalsService
	Guard    *business.FreezeGuard
	Closure  *business.ClosureEngine
	Watchdog *business.Watchdog
	Configs  business.ConfigStore
	History  business.HistoryStore
	Rates    RateAdmin
	Log      logrus.FieldLogger

	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

func (h *Handler) clockNow() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
