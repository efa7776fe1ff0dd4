package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database spans.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // keep bound values in db.statement; development only
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracingConfigFrom extracts the database tracing settings.
func DBTracingConfigFrom(cfg config.TelemetryConfig, dbName string) DBTracingConfig {
	return DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          dbName,
	}
}

type startKey struct{ name string }

// instrumentCallbacks registers before/after hooks around every gorm
// operation. before stamps the start time into the statement context under
// key; after receives the elapsed duration and the operation name.
func instrumentCallbacks(db *gorm.DB, prefix string, after func(db *gorm.DB, op string, elapsed time.Duration)) error {
	key := startKey{prefix}
	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, key, time.Now())
		}
	}
	afterFor := func(op string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			if db.Statement.Context == nil {
				return
			}
			start, ok := db.Statement.Context.Value(key).(time.Time)
			if !ok {
				return
			}
			after(db, op, time.Since(start))
		}
	}

	cb := db.Callback()
	steps := []struct {
		op       string
		register func(string, func(*gorm.DB)) error
		builtin  string
		before   bool
	}{
		{"create", cb.Create().Before("gorm:create").Register, "create", true},
		{"create", cb.Create().After("gorm:create").Register, "create", false},
		{"select", cb.Query().Before("gorm:query").Register, "query", true},
		{"select", cb.Query().After("gorm:query").Register, "query", false},
		{"update", cb.Update().Before("gorm:update").Register, "update", true},
		{"update", cb.Update().After("gorm:update").Register, "update", false},
		{"delete", cb.Delete().Before("gorm:delete").Register, "delete", true},
		{"delete", cb.Delete().After("gorm:delete").Register, "delete", false},
		{"row", cb.Row().Before("gorm:row").Register, "row", true},
		{"row", cb.Row().After("gorm:row").Register, "row", false},
		{"raw", cb.Raw().Before("gorm:raw").Register, "raw", true},
		{"raw", cb.Raw().After("gorm:raw").Register, "raw", false},
	}
	for _, s := range steps {
		fn, phase := afterFor(s.op), "after"
		if s.before {
			fn, phase = before, "before"
		}
		if err := s.register(fmt.Sprintf("%s:%s_%s", prefix, phase, s.builtin), fn); err != nil {
			return fmt.Errorf("failed to register %s callback for %s: %w", prefix, s.builtin, err)
		}
	}
	return nil
}

// RegisterDBTracing installs otelgorm on db so every statement becomes a
// client span, and marks spans of statements slower than SlowQueryThresh.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}

	thresh := cfg.SlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	err := instrumentCallbacks(db, "otel_slow_query", func(db *gorm.DB, op string, elapsed time.Duration) {
		if elapsed < thresh {
			return
		}
		span := trace.SpanFromContext(db.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.String(string(AttrDBOperation), op),
			attribute.String(string(AttrDBTable), db.Statement.Table),
		))
	})
	if err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", thresh),
	)
	return nil
}
