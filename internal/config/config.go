// Package config loads the service configuration from a YAML file with
// environment-variable overrides. A missing file is not an error; every
// field has a working default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration
type Config struct {
	DatabasePath string `yaml:"database_path"` // SQLite file path
	ArtifactDir  string `yaml:"artifact_dir"`  // screenshot/diff artifact root
	HealthAddr   string `yaml:"health_addr"`   // health endpoint listen address, "" disables

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Browser   BrowserConfig   `yaml:"browser"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	AI        AIConfig        `yaml:"ai"`
}

// SchedulerConfig tunes the check loop
type SchedulerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Concurrency  int           `yaml:"concurrency"`
	CheckTimeout time.Duration `yaml:"check_timeout"`
	HealthWindow time.Duration `yaml:"health_window"`

	FailureThreshold int           `yaml:"failure_threshold"`
	BaseCooldown     time.Duration `yaml:"base_cooldown"`
	MaxCooldown      time.Duration `yaml:"max_cooldown"`
}

// BrowserConfig tunes the browser process and context pool
type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	UserAgent   string        `yaml:"user_agent"`
	MaxContexts int           `yaml:"max_contexts"`
	IdleTTL     time.Duration `yaml:"idle_ttl"`
}

// PipelineConfig tunes per-check behavior
type PipelineConfig struct {
	HistoryKeep     int           `yaml:"history_keep"`
	HostMinInterval time.Duration `yaml:"host_min_interval"`
	VisualTolerance int           `yaml:"visual_tolerance"`
}

// AIConfig configures the AI collaborators
type AIConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Model        string `yaml:"model"`
	SummaryModel string `yaml:"summary_model"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		DatabasePath: ".pagewatch/pagewatch.db",
		ArtifactDir:  ".pagewatch/artifacts",
		HealthAddr:   ":8090",
		Scheduler: SchedulerConfig{
			TickInterval:     time.Minute,
			Concurrency:      2,
			CheckTimeout:     45 * time.Second,
			HealthWindow:     5 * time.Minute,
			FailureThreshold: 5,
			BaseCooldown:     60 * time.Minute,
			MaxCooldown:      480 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:    true,
			MaxContexts: 2,
			IdleTTL:     5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			HistoryKeep:     100,
			HostMinInterval: 2 * time.Second,
			VisualTolerance: 10,
		},
		AI: AIConfig{
			Enabled: true,
		},
	}
}

// Load reads the config file at path, applies env overrides, and
// validates. An empty path or missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("artifact_dir is required")
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("scheduler.concurrency must be at least 1")
	}
	if c.Browser.MaxContexts < 1 {
		return fmt.Errorf("browser.max_contexts must be at least 1")
	}
	if c.Scheduler.MaxCooldown < c.Scheduler.BaseCooldown {
		return fmt.Errorf("scheduler.max_cooldown must not be below base_cooldown")
	}
	if c.Pipeline.VisualTolerance < 0 || c.Pipeline.VisualTolerance > 255 {
		return fmt.Errorf("pipeline.visual_tolerance must be between 0 and 255")
	}
	return nil
}

// applyEnvOverrides applies PAGEWATCH_* environment variables on top of
// the file values
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAGEWATCH_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("PAGEWATCH_ARTIFACTS"); v != "" {
		cfg.ArtifactDir = v
	}
	if v := os.Getenv("PAGEWATCH_HEALTH_ADDR"); v != "" {
		cfg.HealthAddr = v
	}
	if v := os.Getenv("PAGEWATCH_TICK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.TickInterval = d
		}
	}
	if v := os.Getenv("PAGEWATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.Concurrency = n
		}
	}
	if v := os.Getenv("PAGEWATCH_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("PAGEWATCH_AI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AI.Enabled = b
		}
	}
}
