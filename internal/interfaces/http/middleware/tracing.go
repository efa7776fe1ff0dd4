package middleware

import (
	"net/http"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxOperatorLength bounds the operator name copied into span attributes.
const MaxOperatorLength = 100

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a server span.
	SkipPaths []string
}

// Tracing wraps otelgin so every request runs inside a server span named
// after its route. The span carries the request ID and the operator header,
// and is marked failed on 5xx responses. Rejected movements (4xx) keep an
// unset status; the ledger span underneath records why.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !skip[r.URL.Path]
	}))
}

// SpanEnricher adds request attributes to the server span and marks 5xx
// responses as errors. Place it after Tracing and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if op := c.GetHeader(logger.OperatorHeader); op != "" {
			if len(op) > MaxOperatorLength {
				op = op[:MaxOperatorLength]
			}
			span.SetAttributes(attribute.String("operator", op))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
