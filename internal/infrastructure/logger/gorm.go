package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger sends GORM's statement log to zap. Statements run at debug,
// slow ones at warn and failures at error. Record-not-found is not a failure.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger wraps log. A zero slow threshold disables slow statement
// warnings.
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, slow time.Duration) *GormLogger {
	return &GormLogger{log: log.Named("gorm"), level: level, slow: slow}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, args)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, args)
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, args)
}

func (g *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, args []any) {
	if g.level >= min {
		g.log.Log(lvl, fmt.Sprintf(msg, args...), g.requestFields(ctx)...)
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	isSlow := g.slow > 0 && elapsed > g.slow
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)

	var (
		msg = "SQL Query"
		lvl = zapcore.DebugLevel
	)
	switch {
	case failed && g.level >= gormlogger.Error:
		msg, lvl = "SQL Error", zapcore.ErrorLevel
	case failed, err != nil:
		return
	case isSlow && g.level >= gormlogger.Warn:
		msg, lvl = "Slow SQL", zapcore.WarnLevel
	case g.level < gormlogger.Info:
		return
	}

	sql, rows := fc()
	fields := append(g.requestFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	}
	if lvl == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", g.slow))
	}
	g.log.Log(lvl, msg, fields...)
}

func (g *GormLogger) requestFields(ctx context.Context) []zap.Field {
	if id := Field(ctx, KeyRequestID); id != "" {
		return []zap.Field{zap.String(KeyRequestID, id)}
	}
	return nil
}

// MapGormLogLevel turns the application level into GORM's: debug shows
// every statement, error only failures, anything else failures and slow
// statements.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	}
	return gormlogger.Warn
}
