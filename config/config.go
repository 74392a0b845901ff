// Package config provides configuration loading and management for semagg.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete semagg configuration
type Config struct {
	Composition CompositionConfig `yaml:"composition"`
	Models      []string          `yaml:"models"`
	NATS        NATSConfig        `yaml:"nats"`
	Export      ExportConfig      `yaml:"export"`
	Watch       WatchConfig       `yaml:"watch"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// CompositionConfig locates the composition file describing the view
type CompositionConfig struct {
	// Path is the composition file (empty = merge of every loaded model)
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = run without NATS)
	URL string `yaml:"url"`
	// IngestSubject receives entity updates
	IngestSubject string `yaml:"ingest_subject"`
	// RemoveSubject receives entity removals
	RemoveSubject string `yaml:"remove_subject"`
	// SnapshotBucket is the KV bucket holding snapshots
	SnapshotBucket string `yaml:"snapshot_bucket"`
	// Timeout bounds connection and request latency
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig configures RDF export
type ExportConfig struct {
	// Format is turtle, ntriples or jsonld
	Format string `yaml:"format"`
}

// WatchConfig configures model file watching
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr is the listen address of the /metrics endpoint
	Addr string `yaml:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Models: nil, // No models until configured
		NATS: NATSConfig{
			URL:            "",
			IngestSubject:  "graph.ingest.entity",
			RemoveSubject:  "graph.remove.entity",
			SnapshotBucket: "SEMAGG_SNAPSHOTS",
			Timeout:        10 * time.Second,
		},
		Export: ExportConfig{
			Format: "turtle",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 250 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "turtle", "ntriples", "jsonld":
	default:
		return fmt.Errorf("export.format must be turtle, ntriples or jsonld, got %q", c.Export.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}
	if c.NATS.Timeout <= 0 {
		return fmt.Errorf("nats.timeout must be positive")
	}
	if c.NATS.URL != "" && (c.NATS.IngestSubject == "" || c.NATS.RemoveSubject == "") {
		return fmt.Errorf("nats subjects are required when nats.url is set")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. Relative composition
// and model paths are resolved against the file's directory.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.resolvePaths(filepath.Dir(path))

	return &config, nil
}

func (c *Config) resolvePaths(base string) {
	if c.Composition.Path != "" && !filepath.IsAbs(c.Composition.Path) {
		c.Composition.Path = filepath.Join(base, c.Composition.Path)
	}
	for i, pattern := range c.Models {
		if !filepath.IsAbs(pattern) {
			c.Models[i] = filepath.Join(base, pattern)
		}
	}
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Composition
	if other.Composition.Path != "" {
		c.Composition.Path = other.Composition.Path
	}

	// Models
	if len(other.Models) > 0 {
		c.Models = other.Models
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.IngestSubject != "" {
		c.NATS.IngestSubject = other.NATS.IngestSubject
	}
	if other.NATS.RemoveSubject != "" {
		c.NATS.RemoveSubject = other.NATS.RemoveSubject
	}
	if other.NATS.SnapshotBucket != "" {
		c.NATS.SnapshotBucket = other.NATS.SnapshotBucket
	}
	if other.NATS.Timeout != 0 {
		c.NATS.Timeout = other.NATS.Timeout
	}

	// Export
	if other.Export.Format != "" {
		c.Export.Format = other.Export.Format
	}

	// Watch
	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Metrics
	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
