package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database query tracing.
type DBTracingConfig struct {
	Enabled         bool          // Enable database tracing
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Threshold for marking queries as slow
	DBName          string        // Database name reported on spans
}

// DefaultDBTracingConfig returns the default database tracing configuration.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

// RegisterDBTracing installs the otelgorm plugin on the given GORM DB
// together with a callback that flags slow queries and records errors on
// the active span. A no-op when tracing is disabled.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBName),
	}
	if !cfg.LogFullSQL {
		// Keep query parameters out of spans, payment rows carry amounts
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	tracer := queryTracer{slowQueryThresh: cfg.SlowQueryThresh}
	if err := tracer.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("db_name", cfg.DBName),
	)
	return nil
}

type queryStartKey struct{}

// queryTracer annotates the otelgorm span with row counts, table names,
// errors and slow query events.
type queryTracer struct {
	slowQueryThresh time.Duration
}

func (t queryTracer) register(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		fn       func(*gorm.DB)
	}{
		{"db_tracing:before_create", cb.Create().Before("gorm:create").Register, t.before},
		{"db_tracing:after_create", cb.Create().After("gorm:create").Register, t.after},
		{"db_tracing:before_query", cb.Query().Before("gorm:query").Register, t.before},
		{"db_tracing:after_query", cb.Query().After("gorm:query").Register, t.after},
		{"db_tracing:before_update", cb.Update().Before("gorm:update").Register, t.before},
		{"db_tracing:after_update", cb.Update().After("gorm:update").Register, t.after},
		{"db_tracing:before_delete", cb.Delete().Before("gorm:delete").Register, t.before},
		{"db_tracing:after_delete", cb.Delete().After("gorm:delete").Register, t.after},
		{"db_tracing:before_row", cb.Row().Before("gorm:row").Register, t.before},
		{"db_tracing:after_row", cb.Row().After("gorm:row").Register, t.after},
		{"db_tracing:before_raw", cb.Raw().Before("gorm:raw").Register, t.before},
		{"db_tracing:after_raw", cb.Raw().After("gorm:raw").Register, t.after},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (t queryTracer) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t queryTracer) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is an expected outcome, not a span error
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > t.slowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", t.slowQueryThresh.Milliseconds()),
		))
	}
}
