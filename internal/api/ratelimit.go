package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/metrics"
)

const maxTrackedUsers = 10000

// userLimiter holds one token bucket per user. Idle users fall out of the
// LRU and start again with a full bucket.
type userLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[uint, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func newUserLimiter(cfg config.RateLimitConfig) *userLimiter {
	cache, err := lru.New[uint, *rate.Limiter](maxTrackedUsers)
	if err != nil {
		panic(err)
	}
	limit := rate.Inf
	if cfg.SubmissionsPerMinute > 0 {
		limit = rate.Limit(cfg.SubmissionsPerMinute / 60)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{limiters: cache, limit: limit, burst: burst}
}

func (l *userLimiter) allow(userID uint) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(userID)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(userID, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// middleware must run after auth.Middleware.
func (l *userLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.Current(c)
		if !ok {
			c.Next()
			return
		}
		if !l.allow(id.UserID) {
			metrics.RateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions, slow down", "kind": "rate_limited"})
			return
		}
		c.Next()
	}
}
