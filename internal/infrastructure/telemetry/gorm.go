package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dbPluginName    = "freightport:db_instrumentation"
	queryStartedKey = "freightport:query_started"
	defaultSlowSQL  = 200 * time.Millisecond
)

// DBConfig controls database instrumentation
type DBConfig struct {
	// System is the db.system value on spans: postgresql, mysql or sqlite
	System string
	// Trace registers otelgorm so every statement gets a client span
	Trace bool
	// QueryVariables keeps bound values in span statements. Leave off
	// outside development: bills and users carry personal data.
	QueryVariables bool
	// SlowQuery marks statements at or above this duration, 200ms when zero
	SlowQuery time.Duration
}

// DBInstrumentation is a GORM plugin counting and timing statements by
// operation and table. It also publishes connection pool gauges and marks
// slow statements on their span.
type DBInstrumentation struct {
	cfg    DBConfig
	logger *zap.Logger

	queries  *Counter
	duration *Histogram
	slow     *Counter
	pool     metric.Registration
}

// InstrumentDB attaches tracing and metrics to db. With a nil meter only
// tracing and slow-query span marks are installed. Close releases the pool
// gauge callback.
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if cfg.SlowQuery <= 0 {
		cfg.SlowQuery = defaultSlowSQL
	}
	d := &DBInstrumentation{cfg: cfg, logger: logger}

	if cfg.Trace {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.System)}
		if !cfg.QueryVariables {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("register otelgorm: %w", err)
		}
	}

	if meter != nil {
		if err := d.instruments(meter); err != nil {
			return nil, err
		}
		if err := d.observePool(db, meter); err != nil {
			return nil, err
		}
	}

	if err := db.Use(d); err != nil {
		return nil, fmt.Errorf("register %s: %w", dbPluginName, err)
	}
	logger.Info("Database instrumented",
		zap.String("system", cfg.System),
		zap.Bool("trace", cfg.Trace),
		zap.Bool("metrics", meter != nil),
		zap.Duration("slow_query", cfg.SlowQuery),
	)
	return d, nil
}

func (d *DBInstrumentation) instruments(meter metric.Meter) (err error) {
	if d.queries, err = NewCounter(meter, "db_query_total", "Statements executed by operation and table", "{query}"); err != nil {
		return err
	}
	if d.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Statement latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return err
	}
	d.slow, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the slow query threshold", "{query}")
	return err
}

func (d *DBInstrumentation) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Pool size limit"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Times a caller waited for a free connection"), metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	d.pool, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, maxOpen, waits)
	return err
}

// Close stops the pool gauges
func (d *DBInstrumentation) Close() error {
	if d == nil || d.pool == nil {
		return nil
	}
	return d.pool.Unregister()
}

// Name implements gorm.Plugin
func (d *DBInstrumentation) Name() string { return dbPluginName }

// Initialize implements gorm.Plugin
func (d *DBInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	add(cb.Create().Before("gorm:create").Register(dbPluginName+":before_create", d.before))
	add(cb.Create().After("gorm:create").Register(dbPluginName+":after_create", d.after("INSERT")))
	add(cb.Query().Before("gorm:query").Register(dbPluginName+":before_query", d.before))
	add(cb.Query().After("gorm:query").Register(dbPluginName+":after_query", d.after("SELECT")))
	add(cb.Update().Before("gorm:update").Register(dbPluginName+":before_update", d.before))
	add(cb.Update().After("gorm:update").Register(dbPluginName+":after_update", d.after("UPDATE")))
	add(cb.Delete().Before("gorm:delete").Register(dbPluginName+":before_delete", d.before))
	add(cb.Delete().After("gorm:delete").Register(dbPluginName+":after_delete", d.after("DELETE")))
	add(cb.Row().Before("gorm:row").Register(dbPluginName+":before_row", d.before))
	add(cb.Row().After("gorm:row").Register(dbPluginName+":after_row", d.after("")))
	add(cb.Raw().Before("gorm:raw").Register(dbPluginName+":before_raw", d.before))
	add(cb.Raw().After("gorm:raw").Register(dbPluginName+":after_raw", d.after("")))
	return errors.Join(errs...)
}

func (d *DBInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(queryStartedKey, time.Now())
}

// after returns the callback for one processor. An empty op is taken from
// the statement text, for Row and Raw.
func (d *DBInstrumentation) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartedKey)
		if !ok {
			return
		}
		started, _ := v.(time.Time)
		elapsed := time.Since(started)

		operation := op
		if operation == "" {
			operation = statementOperation(db.Statement.SQL.String())
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		if d.queries != nil {
			attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(table)}
			d.queries.Inc(ctx, attrs...)
			d.duration.RecordDuration(ctx, elapsed, attrs...)
		}
		if elapsed < d.cfg.SlowQuery {
			return
		}
		if d.slow != nil {
			d.slow.Inc(ctx, AttrDBTable.String(table))
		}
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

func statementOperation(sql string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch op := strings.ToUpper(word); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}
