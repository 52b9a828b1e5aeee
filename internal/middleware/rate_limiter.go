package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/ticket-storefront/pkg/response"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Sustained requests per second per session
	RequestsPerSecond int
	// Token bucket capacity
	BurstSize int
	// Cleanup interval for stale buckets
	CleanupInterval time.Duration
	// Buckets idle for longer than this are dropped
	EntryTTL time.Duration
}

// DefaultRateLimitConfig returns defaults sized for a human clicking through the wizard
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
		EntryTTL:          5 * time.Minute,
	}
}

var rateLimitedTotal = telemetry.NewCounter("storefront_rate_limited_total", "Requests rejected by the per-session rate limiter")

type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time

	totalAllowed  uint64
	totalRejected uint64
}

// NewLocalRateLimiter creates a limiter and starts its cleanup goroutine
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = 5 * time.Minute
	}
	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
		now:    time.Now,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request should be allowed
func (rl *LocalRateLimiter) Allow(key string) bool {
	allowed, _ := rl.AllowWithRemaining(key)
	return allowed
}

// AllowWithRemaining checks if a request should be allowed and returns remaining tokens
func (rl *LocalRateLimiter) AllowWithRemaining(key string) (bool, float64) {
	now := rl.now()

	entry, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	e := entry.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	e.tokens = min(float64(rl.config.BurstSize), e.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	e.lastUpdate = now

	if e.tokens >= 1 {
		e.tokens--
		atomic.AddUint64(&rl.totalAllowed, 1)
		return true, e.tokens
	}

	atomic.AddUint64(&rl.totalRejected, 1)
	return false, e.tokens
}

// GetStats returns rate limiter statistics
func (rl *LocalRateLimiter) GetStats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&rl.totalAllowed), atomic.LoadUint64(&rl.totalRejected)
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// RateLimit rejects requests once the caller's bucket is empty. The bucket is
// keyed by session id, falling back to the client IP.
func RateLimit(rl *LocalRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.RequestsPerSecond <= 0 {
			c.Next()
			return
		}

		key := GetSessionID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		allowed, remaining := rl.AllowWithRemaining(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerSecond))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(remaining)))

		if !allowed {
			rateLimitedTotal.Inc(c.Request.Context(), attribute.String("path", c.FullPath()))
			c.Header("Retry-After", "1")
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please slow down", "")
			c.Abort()
			return
		}

		c.Next()
	}
}
