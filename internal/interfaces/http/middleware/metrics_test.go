package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectHTTPMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw, err := HTTPMetrics(provider.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/batches/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	performRequest(router, http.MethodGet, "/batches/a", nil)
	performRequest(router, http.MethodGet, "/batches/b", nil)
	performRequest(router, http.MethodGet, "/batches/missing", nil)
	performRequest(router, http.MethodGet, "/nowhere", nil)

	metrics := collectHTTPMetrics(t, reader)

	total, ok := metrics["http.server.request.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range total.DataPoints {
		route, _ := dp.Attributes.Value(attrHTTPRoute)
		status, _ := dp.Attributes.Value(attrHTTPStatus)
		counts[route.AsString()+" "+status.Emit()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"/batches/:id 200": 2,
		"/batches/:id 404": 1,
		"unmatched 404":    1,
	}, counts)

	duration, ok := metrics["http.server.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var observed uint64
	for _, dp := range duration.DataPoints {
		_, hasStatus := dp.Attributes.Value(attrHTTPStatus)
		assert.False(t, hasStatus)
		observed += dp.Count
	}
	assert.Equal(t, uint64(4), observed)

	active, ok := metrics["http.server.active_requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
}
