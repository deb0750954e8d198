package routes

import (
	"github.com/gin-gonic/gin"

	"gestioncalc/internal/handlers"
	"gestioncalc/internal/middleware"
)

// SetupCalculatorRoutes sets up all routes related to the earnings calculator
func SetupCalculatorRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	authenticated := middleware.Authenticate(opts.Auth)
	admin := middleware.RequireAdmin()
	cron := middleware.RequireCron(opts.Auth.CronSecret)
	limiter := middleware.RateLimiterMiddleware(opts.RecalcLimit)

	calculator := r.Group("/calculator")
	{
		calculator.GET("/live-values", authenticated, h.GetLiveValues)
		calculator.POST("/live-values", authenticated, h.SaveLiveValues)
		calculator.GET("/totals", authenticated, h.GetTotals)
		calculator.POST("/totals", authenticated, h.SaveTotals)
		calculator.GET("/history", authenticated, h.GetHistory)
		calculator.POST("/recalculate-totals", authenticated, limiter, h.RecalculateTotals)
		calculator.POST("/sync-missing-totals", authenticated, admin, limiter, h.SyncMissingTotals)
	}

	closure := calculator.Group("/period-closure")
	{
		closure.GET("/check-status", authenticated, h.CheckClosureStatus)
		closure.POST("/full-close", cron, h.FullClose)
		closure.POST("/early-freeze", cron, h.EarlyFreeze)
		closure.POST("/watchdog", cron, h.RunWatchdog)
		closure.GET("/frozen-platforms", authenticated, h.GetFrozenPlatforms)
		closure.POST("/frozen-platforms", authenticated, admin, h.UpdateFrozenPlatforms)
	}
}
