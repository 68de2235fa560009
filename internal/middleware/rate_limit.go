package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/utils"
)

// RateLimiter applies a per-key token bucket to REST traffic. Keys are
// user IDs when authenticated, client IPs otherwise.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*tokenBucket
	rate     int // tokens added per second
	burst    int
}

type tokenBucket struct {
	tokens   float64
	lastFill time.Time
	lastSeen time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*tokenBucket),
		rate:     rate,
		burst:    burst,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request under this key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.visitors[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.burst), lastFill: now}
		rl.visitors[key] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * float64(rl.rate)
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastFill = now
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range rl.visitors {
			if b.lastSeen.Before(cutoff) {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects requests that exceed the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
