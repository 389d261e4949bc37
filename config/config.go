// Package config loads the wallet toolbox's configuration: the indexer
// endpoint, the local queue/store data directory, the owned addresses to
// sync, and sync tuning knobs — a single yaml.v3-tagged struct loaded from a
// file, generalized from the teacher's config/config.go. The CLI surface and
// its environment-variable overrides are out of scope; only the config file
// loader survives.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the wallet toolbox's full configuration.
type Config struct {
	// BaseURL is the indexer's HTTP base URL (client.Client's BaseURL).
	BaseURL string `yaml:"base_url"`

	// DataDir holds the local queue's and wallet store's Pebble databases.
	DataDir string `yaml:"data_dir"`

	// Owners are the Bitcoin addresses (or other owner identifiers the
	// indexer's owner service accepts) to subscribe and sync against.
	Owners []string `yaml:"owners"`

	// UserID identifies the wallet's owning user in Store records.
	UserID int `yaml:"user_id"`

	// BatchSize is the sync processor's claim batch size.
	BatchSize int `yaml:"batch_size"`

	// PollIntervalMS is how long the processor sleeps, in milliseconds,
	// when the queue is empty but the stream hasn't finished.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// RequestTimeoutMS bounds each indexer HTTP request.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
}

// PollInterval returns PollIntervalMS as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// defaults returns a Config with sane fallback values, applied before a
// config file is unmarshaled on top of them.
func defaults() *Config {
	return &Config{
		DataDir:          "data",
		BatchSize:        20,
		PollIntervalMS:   100,
		RequestTimeoutMS: 30000,
	}
}

// Load reads and parses the yaml config file at path, applying package
// defaults for any field the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("config: base_url is required")
	}
	if len(cfg.Owners) == 0 {
		return nil, fmt.Errorf("config: owners must list at least one address")
	}

	return cfg, nil
}
