package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bind variables in spans; development only
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing off, without query variables.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type dbContextKey string

const queryStartTimeKey dbContextKey = "db_query_start_time"

// gormHooks lists the processors every DB plugin hooks into
var gormHooks = []string{"create", "query", "update", "delete", "row", "raw"}

// DBTracingPlugin registers otelgorm and annotates its spans with rows affected
// and slow query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs the otelgorm plugin and the slow query callbacks
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerAround(db, "otel_timing", markQueryStart, p.afterQuery); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

// registerAround registers before and after callbacks named prefix:before_<hook>
// and prefix:after_<hook> on every GORM processor
func registerAround(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	for _, hook := range gormHooks {
		gormName := "gorm:" + hook
		var err error
		switch hook {
		case "create":
			if err = cb.Create().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Create().After(gormName).Register(prefix+":after_"+hook, after)
			}
		case "query":
			if err = cb.Query().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Query().After(gormName).Register(prefix+":after_"+hook, after)
			}
		case "update":
			if err = cb.Update().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Update().After(gormName).Register(prefix+":after_"+hook, after)
			}
		case "delete":
			if err = cb.Delete().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Delete().After(gormName).Register(prefix+":after_"+hook, after)
			}
		case "row":
			if err = cb.Row().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Row().After(gormName).Register(prefix+":after_"+hook, after)
			}
		case "raw":
			if err = cb.Raw().Before(gormName).Register(prefix+":before_"+hook, before); err == nil {
				err = cb.Raw().After(gormName).Register(prefix+":after_"+hook, after)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
