package security

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket limiter keyed by caller
// (user ID for authenticated routes). It guards the story generation
// endpoint, where every uncached request costs external generation calls.
type RateLimiter struct {
	callers map[string]*caller
	mu      sync.RWMutex
	rate    int           // requests per window
	window  time.Duration // time window
}

type caller struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter allowing rate requests per window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		rate:    rate,
		window:  window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// Allow checks if a request under the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	c, exists := rl.callers[key]
	if !exists {
		c = &caller{
			tokens:     rl.rate,
			lastRefill: time.Now(),
		}
		rl.callers[key] = c
	}
	rl.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Refill tokens once the window has passed
	now := time.Now()
	if now.Sub(c.lastRefill) >= rl.window {
		c.tokens = rl.rate
		c.lastRefill = now
	}

	if c.tokens > 0 {
		c.tokens--
		return true
	}

	return false
}

// cleanup removes stale caller entries to prevent unbounded growth
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, c := range rl.callers {
			c.mu.Lock()
			if now.Sub(c.lastRefill) > rl.window*2 {
				delete(rl.callers, key)
			}
			c.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}
