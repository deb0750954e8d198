package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gestioncalc/internal/handlers"
	"gestioncalc/internal/metrics"
	"gestioncalc/internal/middleware"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Auth           middleware.AuthConfig
	RecalcLimit    middleware.RateLimiterConfig
	Metrics        *metrics.Registry
	Gatherer       prometheus.Gatherer
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(corsMiddleware(opts.AllowedOrigins))

	// Setup routes for each module
	SetupCalculatorRoutes(r, h, opts)
	SetupRatesRoutes(r, h, opts)

	return r
}

// corsMiddleware answers preflight requests and echoes allowed origins
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Cache-Control, X-Requested-With, X-Cron-Secret")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
