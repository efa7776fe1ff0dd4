package middleware

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestNewRateLimiter_DefaultBurst(t *testing.T) {
	assert.Equal(t, 5, NewRateLimiter(5, 0).burst)
	assert.Equal(t, 1, NewRateLimiter(0.5, 0).burst)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	for i := 0; i < 1100; i++ {
		rl.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Len(t, rl.clients, 1100)

	now = now.Add(rl.idleTTL + time.Minute)
	rl.Allow("fresh")
	assert.Len(t, rl.clients, 1)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	router := gin.New()
	router.Use(RequestID(), RateLimit(rl))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := performRequest(router, http.MethodGet, "/test", nil)
	second := performRequest(router, http.MethodGet, "/test", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "ERR_RATE_LIMITED")
}
