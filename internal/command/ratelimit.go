package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-commander command rate limiting. A token
// bucket per commander handles the sustained rate; a separate cooldown
// check keeps burst tokens from landing in the same tick.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ownerLimit
	config   RateLimitConfig
}

type ownerLimit struct {
	limiter *rate.Limiter
	lastCmd time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// CommandsPerSecond is the sustained command rate per commander
	CommandsPerSecond float64
	// Burst is the token bucket size
	Burst int
	// CooldownDuration is minimum time between commands
	CooldownDuration time.Duration
}

// DefaultRateLimitConfig for commander commands
var DefaultRateLimitConfig = RateLimitConfig{
	CommandsPerSecond: 1,                      // 1 command per second sustained
	Burst:             5,                      // Allow burst of 5
	CooldownDuration:  200 * time.Millisecond, // 200ms between commands
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ownerLimit),
		config:   cfg,
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks if a commander can execute a command
func (rl *RateLimiter) Allow(owner string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := rl.limiters[owner]
	if !exists {
		limit = &ownerLimit{
			limiter: rate.NewLimiter(rate.Limit(rl.config.CommandsPerSecond), rl.config.Burst),
		}
		rl.limiters[owner] = limit
	}

	// Check cooldown
	if !limit.lastCmd.IsZero() && now.Sub(limit.lastCmd) < rl.config.CooldownDuration {
		return false
	}

	if !limit.limiter.Allow() {
		return false
	}

	limit.lastCmd = now
	return true
}

// cleanup removes old entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-5 * time.Minute)

		for key, limit := range rl.limiters {
			if limit.lastCmd.Before(cutoff) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()
	}
}
