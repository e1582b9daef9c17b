package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the limiter settings for the credential endpoints
// (POST /auth/login and POST /auth/register).
//
// These routes run bcrypt — deliberately slow CPU work — so they are the
// cheapest place for an attacker to burn server time, and the place where
// credential stuffing happens. Other routes are not limited.
type RateLimiterConfig struct {
	Rate            rate.Limit    // sustained requests per second per client IP
	Burst           int           // burst size per client IP
	CleanupInterval time.Duration // how often idle client entries are dropped
	CleanupMaxIdle  time.Duration // idle time after which an entry is dropped
}

// DefaultRateLimiterConfig allows 10 attempts per minute with a burst of 5.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(10.0 / 60.0),
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
		CleanupMaxIdle:  15 * time.Minute,
	}
}

// clientLimiter pairs a token bucket with its last access time so idle
// entries can be evicted.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client IP.
//
// The map grows with distinct client IPs, so a background goroutine evicts
// entries that have been idle longer than CleanupMaxIdle. Call Stop to end
// that goroutine on shutdown.
type RateLimiter struct {
	config RateLimiterConfig
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its cleanup goroutine.
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware returns the limiting middleware.
//
// The client key is r.RemoteAddr as rewritten by chi's RealIP middleware,
// which must run earlier in the chain. Over-limit requests get 429 with a
// Retry-After hint.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.getOrCreate(r.RemoteAddr)

			if !limiter.Allow() {
				rl.logger.Warn("rate limit exceeded",
					slog.String("client", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) getOrCreate(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[client] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupMaxIdle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.limiters {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.limiters, client)
		}
	}
}
