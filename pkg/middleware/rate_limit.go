package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/pkg/response"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ByClientIP counts requests per client address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUserOrIP counts authenticated requests per user and anonymous ones per address.
func ByUserOrIP(c *gin.Context) string {
	if id, ok := c.Get("userId"); ok {
		if s, ok := id.(interface{ String() string }); ok {
			return "u:" + s.String()
		}
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter is a fixed-window limiter kept in process memory.
type RateLimiter struct {
	requests map[string]*bucket
	mu       sync.Mutex
	rate     int
	duration time.Duration
	key      KeyFunc
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter allows rate requests per duration for each key.
func NewRateLimiter(rate int, duration time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = ByClientIP
	}
	rl := &RateLimiter{
		requests: make(map[string]*bucket),
		rate:     rate,
		duration: duration,
		key:      key,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanup()
	return rl
}

// Middleware returns a Gin middleware that enforces the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.allow(rl.key(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.requests[key]
	if !exists || now.Sub(b.lastReset) >= rl.duration {
		b = &bucket{tokens: rl.rate, lastReset: now}
		rl.requests[key] = b
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, rl.duration - now.Sub(b.lastReset)
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, b := range rl.requests {
				if now.Sub(b.lastReset) > 2*rl.duration {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
