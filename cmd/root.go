package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "promptflow",
	Short: "Prompt synthesis and execution pipeline",
	Long: `promptflow expands task prompt templates, optimizes and validates
the result, executes it against a completion provider under rate
limiting, and scores the output against the task's expectations.

Common commands:
  promptflow run <task>       Run a task end-to-end
  promptflow validate <task>  Synthesize and validate without executing
  promptflow models           List configured models
  promptflow history <agent>  Show recent execution records`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.Root().PersistentFlags().Changed("log"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal")
}

// setupLogging applies the logging section of the config file; an explicit
// --log flag wins over the configured level.
func setupLogging(flagSet bool) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return applyLogging(cfg, flagSet)
}

func applyLogging(cfg *config.Config, flagSet bool) error {
	levelName := logLevel
	if !flagSet && cfg.Logging.Level != "" {
		levelName = cfg.Logging.Level
	}

	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
