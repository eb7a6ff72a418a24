// Package logger builds the zap loggers used across the portal and the
// gin and gorm adapters around them.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	// Output is stdout, stderr or a file path. Files are appended to.
	Output string
	// TimeFormat is a time layout for entry timestamps, ISO 8601 when empty
	TimeFormat string
	// ExtraCores receive every entry as well, e.g. the OTLP bridge
	ExtraCores []zapcore.Core
}

// New builds a logger with caller info and stack traces on errors
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &Config{Level: "info", Format: "console"}
	}
	output := strings.ToLower(cfg.Output)
	if output == "" {
		output = "stdout"
	} else if output != "stdout" && output != "stderr" {
		output = cfg.Output
	}
	sink, _, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", cfg.Output, err)
	}

	cores := append([]zapcore.Core{zapcore.NewCore(encoder(cfg.Format, cfg.TimeFormat), sink, ParseLevel(cfg.Level))}, cfg.ExtraCores...)
	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// ParseLevel maps a configured level name, falling back to info
func ParseLevel(level string) zapcore.Level {
	if strings.EqualFold(level, "warning") {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func encoder(format, timeFormat string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if timeFormat != "" {
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	}
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
