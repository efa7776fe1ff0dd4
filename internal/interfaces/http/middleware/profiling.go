package middleware

import (
	"context"
	"strings"

	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are served without profiling labels.
	SkipPaths []string
}

// DefaultProfilingConfig skips the health probes.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/health/ready"},
	}
}

// Profiling runs each request under pprof labels for its route pattern and
// method, so Pyroscope can split CPU time per endpoint. The route pattern
// (/api/v1/outbound-orders/:id) keeps label cardinality bounded.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range cfg.SkipPaths {
			if path == p || strings.HasPrefix(path, p+"/") {
				c.Next()
				return
			}
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.WithProfilingLabels(c.Request.Context(), telemetry.HTTPRequestLabels(route, c.Request.Method), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
