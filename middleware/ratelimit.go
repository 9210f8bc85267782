package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateLimitEntry struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-client token bucket.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*rateLimitEntry
	maxTokens  float64
	refillRate float64 // tokens per second
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRateLimiter allows maxRequests per perDuration with bursts up to maxRequests.
// Call Stop to release the cleanup goroutine.
func NewRateLimiter(maxRequests int, perDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:    make(map[string]*rateLimitEntry),
		maxTokens:  float64(maxRequests),
		refillRate: float64(maxRequests) / perDuration.Seconds(),
		stop:       make(chan struct{}),
	}

	go rl.cleanup(5*time.Minute, 10*time.Minute)

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now, idle)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time, idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.clients {
		if now.Sub(entry.lastCheck) > idle {
			delete(rl.clients, key)
		}
	}
}

// allow consumes a token for key. When denied it returns how long until the next token.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.clients[key]

	if !exists {
		rl.clients[key] = &rateLimitEntry{
			tokens:    rl.maxTokens - 1,
			lastCheck: now,
		}
		return true, 0
	}

	elapsed := now.Sub(entry.lastCheck).Seconds()
	entry.tokens = math.Min(rl.maxTokens, entry.tokens+elapsed*rl.refillRate)
	entry.lastCheck = now

	if entry.tokens >= 1 {
		entry.tokens--
		return true, 0
	}

	wait := time.Duration((1 - entry.tokens) / rl.refillRate * float64(time.Second))
	return false, wait
}

// Middleware rate limits by client IP and sets Retry-After on 429 responses.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := rl.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
