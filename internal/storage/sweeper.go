package storage

import (
	"context"
	"time"

	"seasonbot/internal/schedule"
)

// SweepJobName names the retention job in the scheduler
const SweepJobName = "chat-retention-sweep"

// ScheduleSweep registers the chat retention sweep on jobs
func (p *Persistence) ScheduleSweep(jobs *schedule.Jobs, interval time.Duration) error {
	return jobs.Every(SweepJobName, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval/2)
		defer cancel()
		p.Sweep(ctx)
	})
}
