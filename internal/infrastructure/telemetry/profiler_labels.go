package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
)

// MaxLabelValueLength bounds label values to keep profile series small.
const MaxLabelValueLength = 128

// highCardinalityLabels are never attached to profiles.
var highCardinalityLabels = map[string]bool{
	"request_id":   true,
	"trace_id":     true,
	"span_id":      true,
	"order_id":     true,
	"order_number": true,
	"batch_id":     true,
	"batch_number": true,
}

// WithProfilingLabels runs fn with pprof labels attached so CPU samples can
// be filtered by them in Pyroscope. Labels that would explode cardinality
// are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// OperationLabels labels a ledger operation
func OperationLabels(operation string) map[string]string {
	return map[string]string{ProfilingLabelOperation: operation}
}

// HTTPRequestLabels labels an HTTP route
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{
		ProfilingLabelRoute:  route,
		ProfilingLabelMethod: method,
	}
}

// sanitizeLabels returns key/value pairs sorted by key, skipping empty and
// high-cardinality entries and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		v := labels[k]
		key := sanitizeLabelKey(k)
		if key == "" || v == "" || highCardinalityLabels[key] {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_], mapping
// spaces and dashes to underscores.
func sanitizeLabelKey(key string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(key) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		case c == ' ' || c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
