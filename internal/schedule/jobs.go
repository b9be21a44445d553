package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Jobs runs named periodic tasks
type Jobs struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewJobs creates a stopped job scheduler
func NewJobs(logger *slog.Logger) (*Jobs, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Jobs{scheduler: s, logger: logger}, nil
}

// Every registers task to run once at start and then every interval.
// Runs never overlap.
func (j *Jobs) Every(name string, interval time.Duration, task func()) error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			task()
			j.logger.Debug("job finished", "job", name, "duration_ms", time.Since(start).Milliseconds())
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running registered jobs
func (j *Jobs) Start() {
	j.scheduler.Start()
	j.logger.Info("scheduler started", "jobs", len(j.scheduler.Jobs()))
}

// Shutdown stops the scheduler and waits for running jobs
func (j *Jobs) Shutdown() error {
	return j.scheduler.Shutdown()
}
