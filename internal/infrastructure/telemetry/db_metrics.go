package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics holds the query and connection pool instruments.
type DBMetrics struct {
	queryTotal    metric.Int64Counter
	queryDuration metric.Float64Histogram
	slowTotal     metric.Int64Counter
	slowThreshold time.Duration
	registration  metric.Registration
}

// RegisterDBMetrics instruments every gorm statement on db and publishes the
// pool statistics of sqlDB. sqlDB may be nil to skip pool gauges.
func RegisterDBMetrics(db *gorm.DB, sqlDB *sql.DB, meter metric.Meter, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}

	m := &DBMetrics{slowThreshold: slowThreshold}
	var err error
	if m.queryTotal, err = meter.Int64Counter("db.query.total",
		metric.WithDescription("Database statements by operation"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query counter: %w", err)
	}
	if m.queryDuration, err = meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Database statement latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DBDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create query histogram: %w", err)
	}
	if m.slowTotal, err = meter.Int64Counter("db.query.slow.total",
		metric.WithDescription("Database statements slower than the slow query threshold"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create slow query counter: %w", err)
	}

	if err := instrumentCallbacks(db, "metrics", m.observe); err != nil {
		return nil, err
	}

	if sqlDB != nil {
		if m.registration, err = registerPoolGauges(meter, sqlDB); err != nil {
			return nil, err
		}
	}

	logger.Info("Database metrics enabled", zap.Duration("slow_query_threshold", slowThreshold))
	return m, nil
}

func (m *DBMetrics) observe(db *gorm.DB, op string, elapsed time.Duration) {
	ctx := db.Statement.Context
	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
	attrs := metric.WithAttributes(
		AttrDBOperation.String(op),
		AttrDBTable.String(db.Statement.Table),
		attribute.Bool("error", failed),
	)
	m.queryTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, elapsed.Seconds(), attrs)
	if elapsed >= m.slowThreshold {
		m.slowTotal.Add(ctx, 1, metric.WithAttributes(
			AttrDBOperation.String(op),
			AttrDBTable.String(db.Statement.Table),
		))
	}
}

// Unregister stops the pool gauge callback
func (m *DBMetrics) Unregister() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func registerPoolGauges(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	conns, err := meter.Int64ObservableGauge("db.pool.connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db.pool.connections.max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool max gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait.total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool wait counter: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, maxOpen, waits)
}
