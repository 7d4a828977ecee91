package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/logger"
)

func restoreLogging(t *testing.T) {
	t.Helper()
	prev := logLevel
	t.Cleanup(func() {
		logLevel = prev
		logger.SetLevel(logger.InfoLevel)
		logger.SetOutput(os.Stderr)
	})
}

func TestApplyLoggingConfigLevel(t *testing.T) {
	restoreLogging(t)

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"

	logFile := filepath.Join(t.TempDir(), "promptflow.log")
	cfg.Logging.File = logFile
	if err := applyLogging(cfg, false); err != nil {
		t.Fatalf("applyLogging: %v", err)
	}

	logger.Debug("config level test line")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "config level test line") {
		t.Errorf("debug line missing from log file: %q", data)
	}
}

func TestApplyLoggingFlagWinsOverConfig(t *testing.T) {
	restoreLogging(t)

	logLevel = "error"
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"

	logFile := filepath.Join(t.TempDir(), "promptflow.log")
	cfg.Logging.File = logFile
	if err := applyLogging(cfg, true); err != nil {
		t.Fatalf("applyLogging: %v", err)
	}

	logger.Debug("suppressed line")
	data, _ := os.ReadFile(logFile)
	if strings.Contains(string(data), "suppressed line") {
		t.Errorf("explicit flag level must win over config: %q", data)
	}
}

func TestApplyLoggingBadLevel(t *testing.T) {
	restoreLogging(t)

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := applyLogging(cfg, false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
