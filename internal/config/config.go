package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	AI         AIConfig         `yaml:"ai,omitempty"`
	Limits     LimitsConfig     `yaml:"limits,omitempty"`
	Validation ValidationConfig `yaml:"validation,omitempty"`
	Optimizer  OptimizerConfig  `yaml:"optimizer,omitempty"`
	Relay      RelayConfig      `yaml:"relay,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Audit      AuditConfig      `yaml:"audit,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tasks      TasksConfig      `yaml:"tasks,omitempty"`
}

type AIConfig struct {
	Provider    string  `yaml:"provider,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	// TimeoutSeconds bounds a single completion call. 0 means no timeout.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// LimitsConfig configures token ceilings and the per-agent rate limit.
type LimitsConfig struct {
	MaxSystemTokens   int `yaml:"max_system_tokens,omitempty"`
	MaxUserTokens     int `yaml:"max_user_tokens,omitempty"`
	MaxCombinedTokens int `yaml:"max_combined_tokens,omitempty"`

	RateWindowSeconds int `yaml:"rate_window_seconds,omitempty"`
	RateMaxCalls      int `yaml:"rate_max_calls,omitempty"`
}

type ValidationConfig struct {
	// Strict makes validation violations fatal instead of advisory.
	Strict bool `yaml:"strict,omitempty"`
}

type OptimizerConfig struct {
	TokenOptimization   bool `yaml:"token_optimization"`
	ClarityEnhancement  bool `yaml:"clarity_enhancement"`
	ContextCompression  bool `yaml:"context_compression"`
	QualityInstructions bool `yaml:"quality_instructions"`
}

type RelayConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path,omitempty"`
	// RetentionDays prunes execution history older than this. 0 disables pruning.
	RetentionDays int `yaml:"retention_days,omitempty"`
}

type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir,omitempty"`
	FilePrefix    string `yaml:"file_prefix,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TasksConfig locates task definitions and knowledge-base files.
type TasksConfig struct {
	Dir          string `yaml:"dir,omitempty"`
	KnowledgeDir string `yaml:"knowledge_dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Limits: LimitsConfig{
			MaxSystemTokens:   4000,
			MaxUserTokens:     2000,
			MaxCombinedTokens: 6000,
			RateWindowSeconds: 60,
			RateMaxCalls:      50,
		},
		Optimizer: OptimizerConfig{
			TokenOptimization:   true,
			ClarityEnhancement:  true,
			QualityInstructions: true,
		},
		Store: StoreConfig{
			SQLitePath:    filepath.Join(ConfigDir(), "promptflow.db"),
			RetentionDays: 30,
		},
		Audit: AuditConfig{
			Enabled:       false,
			Dir:           filepath.Join(ConfigDir(), "prompt-audit"),
			FilePrefix:    "promptflow",
			RetentionDays: 7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Tasks: TasksConfig{
			Dir:          filepath.Join(ConfigDir(), "tasks"),
			KnowledgeDir: filepath.Join(ConfigDir(), "knowledge"),
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptflow")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptflow.yaml")
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}
