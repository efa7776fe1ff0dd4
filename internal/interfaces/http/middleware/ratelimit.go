package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*visitor
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per client with bursts of
// burst. A burst below one defaults to max(1, rps).
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = max(1, int(rps))
	}
	return &RateLimiter{
		clients: make(map[string]*visitor),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = v
	}
	v.lastSeen = now
	rl.evictIdle(now)
	return v.limiter.AllowN(now, 1)
}

// evictIdle drops buckets unused for idleTTL. Must hold rl.mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	if len(rl.clients) < 1024 {
		return
	}
	for k, v := range rl.clients {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.clients, k)
		}
	}
}

// RateLimit rejects clients that exceed their bucket with 429. Clients are
// keyed by IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited, "Too many requests", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
