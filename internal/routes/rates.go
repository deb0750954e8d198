package routes

import (
	"github.com/gin-gonic/gin"

	"gestioncalc/internal/handlers"
	"gestioncalc/internal/middleware"
)

// SetupRatesRoutes sets up all routes related to conversion rates
func SetupRatesRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	authenticated := middleware.Authenticate(opts.Auth)

	rates := r.Group("/rates")
	{
		rates.GET("/current", authenticated, h.GetCurrentRates)
		rates.POST("", authenticated, middleware.RequireAdmin(), h.SetRate)
		rates.POST("/refresh", authenticated, middleware.RequireAdmin(), h.RefreshRates)
	}
}
