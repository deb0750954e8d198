package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// limiterSet stores one limiter per caller key
type limiterSet struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	config   RateLimiterConfig
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(config RateLimiterConfig) *limiterSet {
	return &limiterSet{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		now:      time.Now,
	}
}

// get returns or creates the limiter of key
func (ls *limiterSet) get(key string) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	entry, exists := ls.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(ls.config.RequestsPerSecond), ls.config.Burst),
		}
		ls.limiters[key] = entry
	}
	entry.lastSeen = ls.now()
	return entry.limiter
}

// prune drops limiters idle for longer than maxIdle
func (ls *limiterSet) prune(maxIdle time.Duration) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	cutoff := ls.now().Add(-maxIdle)
	for key, entry := range ls.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(ls.limiters, key)
		}
	}
}

func (ls *limiterSet) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ls.prune(30 * time.Minute)
	}
}

// callerKey prefers the authenticated user over the client IP
func callerKey(c *gin.Context) string {
	if p, ok := CurrentPrincipal(c); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	return "ip:" + c.ClientIP()
}

// RateLimiterMiddleware creates a rate limiting middleware
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	limiters := newLimiterSet(config)
	go limiters.cleanup()

	return func(c *gin.Context) {
		limiter := limiters.get(callerKey(c))

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
