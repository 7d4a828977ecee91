package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/executor"
	"github.com/kayz/promptflow/internal/logger"
	"github.com/kayz/promptflow/internal/maintenance"
	"github.com/kayz/promptflow/internal/persist"
	"github.com/kayz/promptflow/internal/pipeline"
)

var maintainOnce bool

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run the housekeeping jobs (history prune, audit cleanup)",
	Long: `maintain prunes execution history past the retention window and removes
expired audit files. By default it stays resident and runs the jobs on a
schedule; --once runs them a single time and exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var store *persist.Store
		if cfg.Store.SQLitePath != "" {
			store, err = persist.NewStore(cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()
		}

		var auditor *pipeline.Auditor
		if cfg.Audit.Enabled {
			auditor = pipeline.NewAuditor(cfg.Audit)
		}

		if maintainOnce {
			return runMaintenanceOnce(cfg, store, auditor)
		}

		limiter := executor.NewRateLimiter(
			time.Duration(cfg.Limits.RateWindowSeconds)*time.Second,
			cfg.Limits.RateMaxCalls,
		)
		scheduler := newMaintenanceScheduler(cfg, limiter, store, auditor)
		if err := scheduler.Start(); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		scheduler.Stop()
		return nil
	},
}

func newMaintenanceScheduler(cfg *config.Config, limiter *executor.RateLimiter, store *persist.Store, auditor *pipeline.Auditor) *maintenance.Scheduler {
	var sweeper maintenance.Sweeper
	if limiter != nil {
		sweeper = limiter
	}
	var pruner maintenance.Pruner
	if store != nil {
		pruner = store
	}
	var cleaner maintenance.Cleaner
	if auditor != nil {
		cleaner = auditor
	}
	return maintenance.NewScheduler(sweeper, pruner, cleaner, cfg.Store.RetentionDays)
}

func runMaintenanceOnce(cfg *config.Config, store *persist.Store, auditor *pipeline.Auditor) error {
	if store != nil {
		n, err := store.Prune(cfg.Store.RetentionDays)
		if err != nil {
			return fmt.Errorf("prune execution history: %w", err)
		}
		fmt.Printf("pruned %d execution records\n", n)
	}
	if auditor != nil {
		if err := auditor.Cleanup(); err != nil {
			return fmt.Errorf("audit cleanup: %w", err)
		}
		logger.Info("Audit cleanup complete")
	}
	return nil
}

func init() {
	maintainCmd.Flags().BoolVar(&maintainOnce, "once", false, "Run the jobs once and exit")
	rootCmd.AddCommand(maintainCmd)
}
