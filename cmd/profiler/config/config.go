// Package config provides configuration structures for the profiler CLI.
package config

import (
	"fmt"
	"time"
)

// Config represents the profiler configuration.
type Config struct {
	// Database is the DuckDB database path backing the query engine.
	Database string `yaml:"database" json:"database"`
	// Table is the table reference to profile.
	Table string `yaml:"table" json:"table"`
	// DataSourceID is the logical data source identity; defaults to the table name.
	DataSourceID string `yaml:"data_source_id" json:"data_source_id"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// QueryTimeout bounds each remote query round trip.
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`

	// Detector settings
	Scale                float64 `yaml:"scale" json:"scale"`
	IncludeCategorical   bool    `yaml:"include_categorical" json:"include_categorical"`
	MaxCategoricalValues int     `yaml:"max_categorical_values" json:"max_categorical_values"`

	// SampleRows caps the representative sample size.
	SampleRows int `yaml:"sample_rows" json:"sample_rows"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	if c.Scale < 0 {
		return fmt.Errorf("scale cannot be negative")
	}
	if c.SampleRows < 0 {
		return fmt.Errorf("sample-rows cannot be negative")
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query-timeout cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	return nil
}

// DefaultConfig returns the default profiler configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		QueryTimeout: 5 * time.Minute,
		Scale:        1.7,
		SampleRows:   100,
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}
