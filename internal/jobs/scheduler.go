// Package jobs runs the periodic maintenance sweeps of the economy.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/logging"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Job is one sweep. Run reports how many rows it touched.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Scheduler runs every job on a shared cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	jobs     []Job
	timeout  time.Duration
}

func NewScheduler(schedule string, jobs ...Job) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		jobs:     jobs,
		timeout:  time.Minute,
	}
}

// EconomyJobs returns the sweeps the server schedules: lapsed memberships,
// lapsed bans and system log retention.
func EconomyJobs(engine *services.Engine, db *gorm.DB, retentionDays int) []Job {
	jobs := []Job{
		{Name: "membership_expiry", Run: engine.Entitlements.SweepExpired},
		{Name: "ban_expiry", Run: engine.Moderation.SweepExpiredBans},
	}
	if retentionDays > 0 {
		jobs = append(jobs, Job{
			Name: "system_log_retention",
			Run: func(ctx context.Context) (int64, error) {
				return logging.PurgeSystemLogs(ctx, db, time.Now().UTC().AddDate(0, 0, -retentionDays))
			},
		})
	}
	return jobs
}

// RunAll runs every job once. A failing job does not stop the others.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, job := range s.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
		n, err := job.Run(jobCtx)
		cancel()
		if err != nil {
			slog.Error("job failed", "operation", job.Name, "error", err.Error())
			continue
		}
		if n > 0 {
			slog.Info("job completed", "operation", job.Name, "affected", n)
		}
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunAll(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("job scheduler started", "schedule", s.schedule, "jobs", len(s.jobs))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("job scheduler stopped")
}
