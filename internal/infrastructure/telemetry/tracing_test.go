package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartServiceSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartServiceSpan(context.Background(), "movement", "create_inbound_order",
		attribute.String(SpanAttrOperation, "create_inbound_order"))
	EndSpan(span, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "movement.create_inbound_order", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	op, ok := attrValue(spans[0].Attributes(), SpanAttrOperation)
	assert.True(t, ok)
	assert.Equal(t, "create_inbound_order", op)
}

func TestEndSpan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantCode   string
		wantEvent  string
	}{
		{
			name:       "rejected request",
			err:        fmt.Errorf("outbound: %w", shared.NewDomainError("INSUFFICIENT_STOCK", "not enough stock")),
			wantStatus: codes.Unset,
			wantCode:   "INSUFFICIENT_STOCK",
			wantEvent:  "rejected",
		},
		{
			name:       "incomplete data is a failure",
			err:        shared.NewDomainError("INCOMPLETE_TRANSACTION_DATA", "missing batch"),
			wantStatus: codes.Error,
			wantEvent:  "exception",
		},
		{
			name:       "plain error",
			err:        errors.New("connection reset"),
			wantStatus: codes.Error,
			wantEvent:  "exception",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)
			_, span := StartServiceSpan(context.Background(), "movement", "op")
			EndSpan(span, tt.err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			s := spans[0]
			assert.Equal(t, tt.wantStatus, s.Status().Code)

			code, ok := attrValue(s.Attributes(), SpanAttrErrorCode)
			if tt.wantCode != "" {
				assert.True(t, ok)
				assert.Equal(t, tt.wantCode, code)
			} else {
				assert.False(t, ok)
			}
			require.NotEmpty(t, s.Events())
			assert.Equal(t, tt.wantEvent, s.Events()[0].Name)
		})
	}
}
