package main

import (
	"context"

	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// observability holds the OpenTelemetry providers and the profiler. Every
// field is nil when telemetry is disabled.
type observability struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*observability, error) {
	o := &observability{}
	tc := cfg.Telemetry
	if !tc.Enabled {
		log.Info("Telemetry disabled")
		return o, nil
	}

	otelCfg := telemetry.Config{
		CollectorEndpoint: tc.CollectorEndpoint,
		Insecure:          tc.Insecure,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    Version,
		SamplingRatio:     tc.SamplingRatio,
		ExportInterval:    tc.MetricsInterval,
	}

	var err error
	if o.tracer, err = telemetry.NewTracerProvider(ctx, otelCfg, log); err != nil {
		return o, err
	}
	if o.meter, err = telemetry.NewMeterProvider(ctx, otelCfg, log); err != nil {
		return o, err
	}
	if o.logs, err = telemetry.NewLoggerProvider(ctx, otelCfg, log); err != nil {
		return o, err
	}

	if tc.ProfilingEnabled {
		o.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
			ServerAddress:   tc.ProfilingServer,
			ApplicationName: tc.ServiceName,
			Tags:            map[string]string{"version": Version},
		}, log)
		if err != nil {
			return o, err
		}
		if err := o.tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}

	log.Info("Telemetry enabled",
		zap.String("collector", tc.CollectorEndpoint),
		zap.Float64("sampling_ratio", tc.SamplingRatio),
		zap.Bool("profiling", tc.ProfilingEnabled),
	)
	return o, nil
}

// bridgeLogger returns a logger that also ships records to the OTLP
// collector, or log itself when log export is off.
func (o *observability) bridgeLogger(cfg *config.Config, log *zap.Logger) *zap.Logger {
	if !o.logs.Enabled() {
		return log
	}
	core := telemetry.NewZapCore(o.logs, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
	bridged, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		ExtraCores: []zapcore.Core{core},
	})
	if err != nil {
		log.Warn("OTLP log bridge unavailable", zap.Error(err))
		return log
	}
	return bridged
}

// Meter returns the application meter, nil when metrics are off
func (o *observability) Meter(name string) metric.Meter {
	return o.meter.Meter(name)
}

// Shutdown flushes and stops the providers in reverse start order
func (o *observability) Shutdown(ctx context.Context, log *zap.Logger) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"profiler", o.profiler.Stop},
		{"log provider", func() error { return o.logs.Shutdown(ctx) }},
		{"meter provider", func() error { return o.meter.Shutdown(ctx) }},
		{"tracer provider", func() error { return o.tracer.Shutdown(ctx) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			log.Warn("Telemetry shutdown step failed", zap.String("step", step.name), zap.Error(err))
		}
	}
}
