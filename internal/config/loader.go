package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a tunable unset.
const (
	defaultCooldownSeconds       = 60
	defaultRequestTimeoutSeconds = 30
	defaultRetryMaxAttempts      = 3
	defaultRetryBaseDelaySeconds = 5
	defaultStateFilePath         = "state/collector_state.json"
)

// FileLoader loads configuration from a YAML file on disk, applying
// environment overrides for secrets and defaults for unset tunables.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for the config file at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads, parses, defaults, overrides, and validates the configuration.
func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.FusionSolar.RequestTimeoutSeconds <= 0 {
		cfg.FusionSolar.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if cfg.Collector.CooldownSeconds <= 0 {
		cfg.Collector.CooldownSeconds = defaultCooldownSeconds
	}
	if cfg.Collector.StateFilePath == "" {
		cfg.Collector.StateFilePath = defaultStateFilePath
	}
	applyRetryDefaults(&cfg.Collector.CatalogRetry)
	applyRetryDefaults(&cfg.Collector.DetailRetry)
}

func applyRetryDefaults(r *RetryConfig) {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = defaultRetryMaxAttempts
	}
	if r.BaseDelaySeconds <= 0 {
		r.BaseDelaySeconds = defaultRetryBaseDelaySeconds
	}
}

// applyEnvOverrides lets deployment environments inject secrets without
// writing them to the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FUSIONSOLAR_DOMAIN"); v != "" {
		cfg.FusionSolar.Domain = v
	}
	if v := os.Getenv("FUSIONSOLAR_USERNAME"); v != "" {
		cfg.FusionSolar.UserName = v
	}
	if v := os.Getenv("FUSIONSOLAR_SYSTEM_CODE"); v != "" {
		cfg.FusionSolar.SystemCode = v
	}
	if v := os.Getenv("COLLECTOR_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("COLLECTOR_STATE_FILE"); v != "" {
		cfg.Collector.StateFilePath = v
	}
}
