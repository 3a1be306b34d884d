// Package config defines the collector's configuration and its file loader.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration, immutable after loading.
type Config struct {
	FusionSolar FusionSolarConfig `yaml:"fusionsolar"`
	Database    DatabaseConfig    `yaml:"database"`
	Collector   CollectorConfig   `yaml:"collector"`
}

// FusionSolarConfig holds the vendor API endpoint and credentials. The
// credentials are normally supplied via environment variables rather than
// the config file.
type FusionSolarConfig struct {
	// Domain is the API host, e.g. "eu5.fusionsolar.huawei.com".
	Domain     string `yaml:"domain"`
	UserName   string `yaml:"user_name"`
	SystemCode string `yaml:"system_code"`

	// RequestTimeoutSeconds bounds each individual API call. Timeouts apply
	// per call, never to the sweep as a whole.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RetryConfig bounds one retried remote operation.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	BaseDelaySeconds int `yaml:"base_delay_seconds"`
}

// CollectorConfig holds the sweep tunables.
type CollectorConfig struct {
	// PlantLimit caps the number of plants processed per invocation.
	// Zero means no cap.
	PlantLimit int `yaml:"plant_limit"`

	// CooldownSeconds is the pacing interval observed before every detail
	// call, including the first.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// StateFilePath locates the checkpoint file.
	StateFilePath string `yaml:"state_file_path"`

	CatalogRetry RetryConfig `yaml:"catalog_retry"`
	DetailRetry  RetryConfig `yaml:"detail_retry"`
}

// RequestTimeout returns the per-call timeout as a duration.
func (c FusionSolarConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Cooldown returns the pacing interval as a duration.
func (c CollectorConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// BaseDelay returns the initial retry delay as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds) * time.Second
}

// Validate checks that everything required to run a sweep is present.
func (c *Config) Validate() error {
	switch {
	case c.FusionSolar.Domain == "":
		return errors.New("fusionsolar domain is required")
	case c.FusionSolar.UserName == "":
		return errors.New("fusionsolar user name is required")
	case c.FusionSolar.SystemCode == "":
		return errors.New("fusionsolar system code is required")
	case c.Database.DSN == "":
		return errors.New("database dsn is required")
	case c.Collector.StateFilePath == "":
		return errors.New("collector state file path is required")
	}
	return nil
}
