// Package maintenance runs the periodic housekeeping jobs: rate-limit window
// sweeps, execution-history pruning and audit-file cleanup.
package maintenance

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kayz/promptflow/internal/logger"
)

const (
	// sweepSchedule drops expired rate-limit windows.
	sweepSchedule = "@every 5m"
	// pruneSchedule runs the daily retention jobs.
	pruneSchedule = "@daily"
)

// Sweeper discards expired rate-limit records.
type Sweeper interface {
	Sweep() int
}

// Pruner deletes execution history past the retention window.
type Pruner interface {
	Prune(retentionDays int) (int64, error)
}

// Cleaner removes expired audit files.
type Cleaner interface {
	Cleanup() error
}

// Scheduler owns the cron instance and the registered housekeeping jobs.
type Scheduler struct {
	cron          *cron.Cron
	sweeper       Sweeper
	pruner        Pruner
	cleaner       Cleaner
	retentionDays int
}

// NewScheduler wires the housekeeping jobs. Any of sweeper, pruner and
// cleaner may be nil; the matching job is skipped.
func NewScheduler(sweeper Sweeper, pruner Pruner, cleaner Cleaner, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		sweeper:       sweeper,
		pruner:        pruner,
		cleaner:       cleaner,
		retentionDays: retentionDays,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(sweepSchedule, s.runSweep); err != nil {
			return fmt.Errorf("schedule rate-limit sweep: %w", err)
		}
	}
	if s.pruner != nil {
		if _, err := s.cron.AddFunc(pruneSchedule, s.runPrune); err != nil {
			return fmt.Errorf("schedule history prune: %w", err)
		}
	}
	if s.cleaner != nil {
		if _, err := s.cron.AddFunc(pruneSchedule, s.runCleanup); err != nil {
			return fmt.Errorf("schedule audit cleanup: %w", err)
		}
	}

	s.cron.Start()
	logger.Info("Maintenance scheduler started with %d jobs", len(s.cron.Entries()))
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) runSweep() {
	if n := s.sweeper.Sweep(); n > 0 {
		logger.Debug("Rate-limit sweep dropped %d expired windows", n)
	}
}

func (s *Scheduler) runPrune() {
	n, err := s.pruner.Prune(s.retentionDays)
	if err != nil {
		logger.Warn("Execution history prune failed: %v", err)
		return
	}
	if n > 0 {
		logger.Info("Pruned %d execution records older than %d days", n, s.retentionDays)
	}
}

func (s *Scheduler) runCleanup() {
	if err := s.cleaner.Cleanup(); err != nil {
		logger.Warn("Audit cleanup failed: %v", err)
	}
}
