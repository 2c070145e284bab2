package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"questtracker/pkg/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user (client IP for anonymous requests).
// Idle buckets are dropped by a janitor that stops with ctx.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(ctx context.Context, cfg RateLimitConfig) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.MaxRequests)),
		burst:    cfg.MaxRequests,
	}

	expiry := cfg.Window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	go rl.cleanup(ctx, expiry)
	return rl
}

func (rl *RateLimiter) cleanup(ctx context.Context, expiry time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > expiry {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if user, err := auth.UserFromContext(c); err == nil {
			key = strconv.FormatInt(user.ID, 10)
		}

		if !rl.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
