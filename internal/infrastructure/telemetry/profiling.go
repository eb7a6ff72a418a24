package telemetry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// Profiling label keys
const (
	LabelMethod   = "method"
	LabelRoute    = "route"
	LabelResource = "resource"
	LabelRole     = "role"
	LabelJob      = "job"
)

// maxLabelValue bounds label values so a bad route cannot blow up the
// profile index
const maxLabelValue = 128

// ProfilerConfig configures the Pyroscope agent
type ProfilerConfig struct {
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	// Tags are attached to every profile. The hostname is added when unset.
	Tags map[string]string
	// MutexProfileFraction and BlockProfileRate turn on the mutex and block
	// profiles when positive
	MutexProfileFraction int
	BlockProfileRate     int
}

// Profiler is a running Pyroscope agent. A nil *Profiler is a disabled one.
type Profiler struct {
	agent  *pyroscope.Profiler
	logger *zap.Logger
	stop   sync.Once
}

// NewProfiler starts continuous CPU, heap and goroutine profiling
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	if cfg.ServerAddress == "" || cfg.ApplicationName == "" {
		return nil, errors.New("profiler needs a server address and an application name")
	}

	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if cfg.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(cfg.MutexProfileFraction)
		types = append(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	if cfg.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(cfg.BlockProfileRate)
		types = append(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
	}

	tags := make(map[string]string, len(cfg.Tags)+1)
	maps.Copy(tags, cfg.Tags)
	if _, ok := tags["hostname"]; !ok {
		if host, err := os.Hostname(); err == nil {
			tags["hostname"] = host
		}
	}

	agent, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            logger.Named("pyroscope").Sugar(),
		Tags:              tags,
		ProfileTypes:      types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	logger.Info("Continuous profiling enabled",
		zap.String("server", cfg.ServerAddress),
		zap.Int("profile_types", len(types)),
	)
	return &Profiler{agent: agent, logger: logger}, nil
}

// Stop flushes pending profiles. Later calls are no-ops.
func (p *Profiler) Stop() error {
	if p == nil || p.agent == nil {
		return nil
	}
	var err error
	p.stop.Do(func() {
		err = p.agent.Stop()
	})
	return err
}

// WithProfilingLabels runs fn with labels attached to its goroutine's
// samples. Id-like keys and empty values are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key, value pairs
func labelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" || v == "" || isIDLabel(k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > maxLabelValue {
			v = v[:maxLabelValue]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}

// isIDLabel reports keys holding per-entity ids: company_id, trace_id and
// the like
func isIDLabel(key string) bool {
	return key == "id" || strings.HasSuffix(key, "_id")
}
