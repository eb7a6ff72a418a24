package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/freightport/backend/internal/infrastructure/config"
)

// Job names
const (
	JobOverdueSweep      = "overdue_sweep"
	JobNotificationRetry = "notification_retry"
)

// OverdueSweeper flags bills whose due date has passed
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}

// NotificationRetrier re-sends failed out-of-app notifications
type NotificationRetrier interface {
	RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

// NewOverdueSweepJob builds the overdue sweep job
func NewOverdueSweepJob(cfg config.SchedulerConfig, sweeper OverdueSweeper) *Job {
	return &Job{
		Name:       JobOverdueSweep,
		Interval:   cfg.OverdueSweepInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) (int, error) {
			return sweeper.SweepOverdue(ctx, time.Now(), cfg.BatchSize)
		},
	}
}

// NewNotificationRetryJob builds the notification retry job
func NewNotificationRetryJob(cfg config.SchedulerConfig, retrier NotificationRetrier) *Job {
	return &Job{
		Name:     JobNotificationRetry,
		Interval: cfg.NotificationRetryEvery,
		Run: func(ctx context.Context) (int, error) {
			return retrier.RetryFailed(ctx, cfg.NotificationMaxRetries, cfg.BatchSize)
		},
	}
}

// New builds a scheduler with the portal's jobs registered
func New(cfg config.SchedulerConfig, sweeper OverdueSweeper, retrier NotificationRetrier, recorder RunRecorder, logger *zap.Logger) (*Scheduler, error) {
	s := NewScheduler(Config{Enabled: cfg.Enabled, JobTimeout: cfg.JobTimeout}, recorder, logger)
	if sweeper != nil {
		if err := s.Register(NewOverdueSweepJob(cfg, sweeper)); err != nil {
			return nil, err
		}
	}
	if retrier != nil {
		if err := s.Register(NewNotificationRetryJob(cfg, retrier)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
