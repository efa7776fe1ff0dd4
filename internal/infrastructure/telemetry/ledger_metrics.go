package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when an instrument set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics records inventory movements. It satisfies the recorder the
// movement service reports to.
//
//	warehouse.movements.total           movements committed, by operation and change type
//	warehouse.movements.quantity        units moved, signed, by change type
//	warehouse.movements.rejected.total  movements refused, by operation and error code
//	warehouse.movements.size            histogram of absolute units per movement
type LedgerMetrics struct {
	movements metric.Int64Counter
	quantity  metric.Int64UpDownCounter
	rejected  metric.Int64Counter
	size      metric.Int64Histogram
}

// NewLedgerMetrics creates the movement instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   LedgerMetrics
		err error
	)
	if m.movements, err = meter.Int64Counter("warehouse.movements.total",
		metric.WithDescription("Inventory movements committed"),
		metric.WithUnit("{movement}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create movements counter: %w", err)
	}
	if m.quantity, err = meter.Int64UpDownCounter("warehouse.movements.quantity",
		metric.WithDescription("Net units moved by committed movements"),
		metric.WithUnit("{unit}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create quantity counter: %w", err)
	}
	if m.rejected, err = meter.Int64Counter("warehouse.movements.rejected.total",
		metric.WithDescription("Inventory movements refused"),
		metric.WithUnit("{movement}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rejection counter: %w", err)
	}
	if m.size, err = meter.Int64Histogram("warehouse.movements.size",
		metric.WithDescription("Units per movement"),
		metric.WithUnit("{unit}"),
		metric.WithExplicitBucketBoundaries(QuantityBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create size histogram: %w", err)
	}
	return &m, nil
}

// RecordMovement counts one committed movement. quantity is the signed
// change applied to stock; reversals from edits and deletes are negative.
func (m *LedgerMetrics) RecordMovement(ctx context.Context, operation string, changeType inventory.ChangeType, quantity int64) {
	attrs := metric.WithAttributes(
		AttrOperation.String(operation),
		AttrChangeType.String(string(changeType)),
	)
	m.movements.Add(ctx, 1, attrs)

	signed := quantity
	if changeType == inventory.ChangeTypeOut {
		signed = -quantity
	}
	m.quantity.Add(ctx, signed, metric.WithAttributes(AttrChangeType.String(string(changeType))))

	size := quantity
	if size < 0 {
		size = -size
	}
	m.size.Record(ctx, size, metric.WithAttributes(AttrChangeType.String(string(changeType))))
}

// RecordRejection counts one refused movement
func (m *LedgerMetrics) RecordRejection(ctx context.Context, operation, code string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(operation),
		AttrErrorCode.String(code),
	))
}

// StockLevel is the on-hand quantity of one material.
type StockLevel struct {
	MaterialCode string
	Quantity     int64
}

// StockLevelProvider reports current on-hand quantities for the stock gauge.
type StockLevelProvider interface {
	StockLevels(ctx context.Context) ([]StockLevel, error)
}

// RegisterStockGauge publishes warehouse.stock.on_hand per material. The
// provider is queried on each collection, so the cost is one aggregate query
// per export interval.
func RegisterStockGauge(meter metric.Meter, provider StockLevelProvider, logger *zap.Logger) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	gauge, err := meter.Int64ObservableGauge("warehouse.stock.on_hand",
		metric.WithDescription("Units on hand per material"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stock gauge: %w", err)
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		levels, err := provider.StockLevels(ctx)
		if err != nil {
			logger.Warn("Failed to collect stock levels", zap.Error(err))
			return nil
		}
		for _, l := range levels {
			o.ObserveInt64(gauge, l.Quantity, metric.WithAttributeSet(attribute.NewSet(AttrMaterial.String(l.MaterialCode))))
		}
		return nil
	}, gauge)
}
