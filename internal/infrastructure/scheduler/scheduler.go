// Package scheduler runs the portal's periodic background jobs: the overdue
// bill sweep and the WeChat notification retry.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RunFunc performs one pass of a job and reports how many items it handled.
type RunFunc func(ctx context.Context) (int, error)

// Job is a named RunFunc with its interval. Runs of one job never overlap.
type Job struct {
	Name     string
	Interval time.Duration
	Run      RunFunc
	// RunOnStart fires one run as soon as the scheduler starts.
	RunOnStart bool

	busy atomic.Bool
}

// RunRecorder is told about every finished run, failed or not.
type RunRecorder interface {
	SchedulerRun(job string, d time.Duration, items int, err error)
}

type Config struct {
	Enabled bool
	// JobTimeout bounds a single run.
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Enabled: true, JobTimeout: 5 * time.Minute}
}

// Scheduler owns a ticker loop per registered job.
type Scheduler struct {
	config   Config
	recorder RunRecorder
	logger   *zap.Logger

	mu     sync.Mutex
	jobs   []*Job
	byName map[string]*Job
	stop   context.CancelFunc // non-nil while running
	loops  sync.WaitGroup
}

// NewScheduler returns a stopped scheduler. recorder and logger may be nil.
func NewScheduler(config Config, recorder RunRecorder, logger *zap.Logger) *Scheduler {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{config: config, recorder: recorder, logger: logger, byName: map[string]*Job{}}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (s *Scheduler) Register(job *Job) error {
	if job == nil || job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job needs a name, a run func and a positive interval", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byName[job.Name] != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.byName[job.Name] = job
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches the job loops. It is a no-op when disabled or already
// started.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	ctx, s.stop = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.loops.Go(func() { s.loop(ctx, job) })
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)), zap.Duration("job_timeout", s.config.JobTimeout))
	return nil
}

// Stop cancels the loops and waits for in-flight runs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()

	drained := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with runs in flight")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Trigger runs a job now, outside its ticker. It fails with
// ErrJobAlreadyRunning if a run is in progress.
func (s *Scheduler) Trigger(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	job, running := s.byName[name], s.stop != nil
	s.mu.Unlock()
	switch {
	case job == nil:
		return 0, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	case !running:
		return 0, ErrSchedulerNotRunning
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	tick := time.NewTicker(job.Interval)
	defer tick.Stop()
	log := s.logger.With(zap.String("job", job.Name))
	log.Debug("Job scheduled", zap.Duration("interval", job.Interval))

	if job.RunOnStart {
		_, _ = s.execute(ctx, job)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, _ = s.execute(ctx, job)
		}
	}
}

// execute performs one guarded run: no overlap, bounded by JobTimeout,
// traced, profiled under the job label, and with panics turned into errors.
func (s *Scheduler) execute(ctx context.Context, job *Job) (items int, err error) {
	if !job.busy.CompareAndSwap(false, true) {
		return 0, ErrJobAlreadyRunning
	}
	defer job.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "scheduler."+job.Name, telemetry.AttrJob.String(job.Name))

	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		telemetry.EndSpan(span, err)
		s.report(job.Name, time.Since(began), items, err)
	}()

	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.LabelJob: job.Name}, func(ctx context.Context) {
		items, err = job.Run(ctx)
	})
	return items, err
}

func (s *Scheduler) report(name string, took time.Duration, items int, err error) {
	if s.recorder != nil {
		s.recorder.SchedulerRun(name, took, items, err)
	}
	fields := []zap.Field{zap.String("job", name), zap.Duration("duration", took)}
	if err != nil {
		s.logger.Error("Job failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("Job completed", append(fields, zap.Int("items", items))...)
}
