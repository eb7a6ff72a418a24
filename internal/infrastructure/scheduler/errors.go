package scheduler

import "errors"

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobNotFound         = errors.New("job not found")
	ErrDuplicateJob        = errors.New("job already registered")
	ErrInvalidConfig       = errors.New("invalid scheduler configuration")
	// ErrJobAlreadyRunning is returned by Trigger while a run is in progress.
	ErrJobAlreadyRunning = errors.New("job is already running")
)
