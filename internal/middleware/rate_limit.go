package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-IP token bucket. Visitors idle for longer than the
// expiry are dropped by the cache janitor.
type RateLimiter struct {
	visitors *cache.Cache
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst size
	idle     time.Duration
}

// NewRateLimiter creates a new rate limiter
// r: requests per second (e.g. 0.2 means one request every five seconds)
// b: burst size
// idle: how long an unseen visitor is remembered
func NewRateLimiter(r rate.Limit, b int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: cache.New(idle, idle/2),
		r:        r,
		b:        b,
		idle:     idle,
	}
}

// getVisitor returns the limiter for ip and refreshes its expiry
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, found := rl.visitors.Get(ip); found {
		limiter := v.(*rate.Limiter)
		rl.visitors.Set(ip, limiter, rl.idle)
		return limiter
	}

	limiter := rate.NewLimiter(rl.r, rl.b)
	rl.visitors.Set(ip, limiter, rl.idle)
	return limiter
}

// Visitors is the number of IPs currently tracked
func (rl *RateLimiter) Visitors() int {
	return rl.visitors.ItemCount()
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getVisitor(ip)

		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded", zap.String("client_ip", ip), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.LeadResponse{
				OK:    false,
				Error: "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
