package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for application spans.
const TracerName = "github.com/erp/warehouse"

// Span attribute keys for ledger operations.
const (
	SpanAttrOperation   = "ledger.operation"
	SpanAttrOrderNumber = "ledger.order_number"
	SpanAttrBatchNumber = "ledger.batch_number"
	SpanAttrErrorCode   = "error.code"
)

// StartServiceSpan starts an internal span named "<service>.<method>".
// The caller must end the span.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx,
		fmt.Sprintf("%s.%s", service, method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// failureCodes are domain codes that indicate a server fault rather than a
// rejected request.
var failureCodes = map[string]bool{
	"INTERNAL_ERROR":              true,
	"INCOMPLETE_TRANSACTION_DATA": true,
}

// EndSpan finishes span with a status derived from err. Rejected requests
// (insufficient stock, unknown batch) are tagged with their code but do not
// mark the span as failed.
func EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && !failureCodes[domainErr.Code] {
		span.SetAttributes(attribute.String(SpanAttrErrorCode, domainErr.Code))
		span.AddEvent("rejected", trace.WithAttributes(attribute.String("message", domainErr.Message)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
