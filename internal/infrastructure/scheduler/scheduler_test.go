package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/freightport/backend/internal/infrastructure/config"
)

type recordedRun struct {
	job   string
	items int
	err   error
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (r *fakeRecorder) SchedulerRun(job string, _ time.Duration, items int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{job: job, items: items, err: err})
}

func (r *fakeRecorder) snapshot() []recordedRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRun(nil), r.runs...)
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(DefaultConfig(), nil, zaptest.NewLogger(t))
	run := func(context.Context) (int, error) { return 0, nil }

	require.NoError(t, s.Register(&Job{Name: "a", Interval: time.Second, Run: run}))
	assert.ErrorIs(t, s.Register(&Job{Name: "a", Interval: time.Second, Run: run}), ErrDuplicateJob)
	assert.ErrorIs(t, s.Register(&Job{Name: "b", Run: run}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(&Job{Name: "c", Interval: time.Second}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(nil), ErrInvalidConfig)
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewScheduler(DefaultConfig(), rec, zaptest.NewLogger(t))

	var calls atomic.Int32
	require.NoError(t, s.Register(&Job{
		Name:       "tick",
		Interval:   20 * time.Millisecond,
		RunOnStart: true,
		Run: func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 2, nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	runs := rec.snapshot()
	require.NotEmpty(t, runs)
	assert.Equal(t, "tick", runs[0].job)
	assert.Equal(t, 2, runs[0].items)
	assert.NoError(t, runs[0].err)
}

func TestScheduler_Disabled(t *testing.T) {
	s := NewScheduler(Config{Enabled: false}, nil, nil)
	require.NoError(t, s.Register(&Job{Name: "x", Interval: time.Millisecond, RunOnStart: true, Run: func(context.Context) (int, error) {
		t.Error("disabled scheduler must not run jobs")
		return 0, nil
	}}))
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_Trigger(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewScheduler(DefaultConfig(), rec, zaptest.NewLogger(t))
	require.NoError(t, s.Register(&Job{
		Name:     "sweep",
		Interval: time.Hour,
		Run:      func(context.Context) (int, error) { return 5, nil },
	}))

	_, err := s.Trigger(context.Background(), "sweep")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	n, err := s.Trigger(context.Background(), "sweep")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = s.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_FailureAndPanicAreRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewScheduler(DefaultConfig(), rec, zaptest.NewLogger(t))
	require.NoError(t, s.Register(&Job{
		Name: "fails", Interval: time.Hour,
		Run: func(context.Context) (int, error) { return 0, errors.New("db down") },
	}))
	require.NoError(t, s.Register(&Job{
		Name: "panics", Interval: time.Hour,
		Run: func(context.Context) (int, error) { panic("boom") },
	}))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.Trigger(context.Background(), "fails")
	assert.EqualError(t, err, "db down")

	_, err = s.Trigger(context.Background(), "panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	runs := rec.snapshot()
	require.Len(t, runs, 2)
	assert.Error(t, runs[0].err)
	assert.Error(t, runs[1].err)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := NewScheduler(DefaultConfig(), nil, zaptest.NewLogger(t))
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register(&Job{
		Name: "slow", Interval: time.Hour,
		Run: func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	go func() { _, _ = s.Trigger(context.Background(), "slow") }()
	<-started

	_, err := s.Trigger(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	close(release)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := NewScheduler(Config{Enabled: true, JobTimeout: 20 * time.Millisecond}, nil, zaptest.NewLogger(t))
	require.NoError(t, s.Register(&Job{
		Name: "blocks", Interval: time.Hour,
		Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.Trigger(context.Background(), "blocks")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeSweeper struct{ limit int }

func (f *fakeSweeper) SweepOverdue(_ context.Context, _ time.Time, limit int) (int, error) {
	f.limit = limit
	return 3, nil
}

type fakeRetrier struct{ maxAttempts, limit int }

func (f *fakeRetrier) RetryFailed(_ context.Context, maxAttempts, limit int) (int, error) {
	f.maxAttempts, f.limit = maxAttempts, limit
	return 1, nil
}

func TestNew_RegistersPortalJobs(t *testing.T) {
	cfg := config.SchedulerConfig{
		Enabled:                true,
		OverdueSweepInterval:   time.Hour,
		NotificationRetryEvery: time.Hour,
		NotificationMaxRetries: 5,
		JobTimeout:             time.Second,
		BatchSize:              200,
	}
	sweeper := &fakeSweeper{}
	retrier := &fakeRetrier{}
	s, err := New(cfg, sweeper, retrier, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	n, err := s.Trigger(context.Background(), JobNotificationRetry)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, retrier.maxAttempts)
	assert.Equal(t, 200, retrier.limit)

	assert.Eventually(t, func() bool {
		_, err := s.Trigger(context.Background(), JobOverdueSweep)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 200, sweeper.limit)
}
