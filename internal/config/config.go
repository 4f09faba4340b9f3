// Package config loads optional CLI defaults from a per-user YAML file.
// Flags always win over the file; the file wins over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the defaults file looked up in the user's home directory.
const FileName = ".pysheet.yaml"

// Config holds the CLI defaults that may be set from the defaults file.
type Config struct {
	// Delimiter is the default input delimiter. Empty means detect.
	Delimiter string `yaml:"delimiter,omitempty"`
	// OutDelimiter is the default output delimiter.
	OutDelimiter string `yaml:"out_delimiter,omitempty"`
	// Mode is the default consolidation mode.
	Mode string `yaml:"mode,omitempty"`
	// Lock configures lock acquisition.
	Lock Lock `yaml:"lock,omitempty"`
}

// Lock holds lock-manager timings, in whole units for readability in YAML.
type Lock struct {
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	PollMillis     int `yaml:"poll_millis,omitempty"`
	StaleSeconds   int `yaml:"stale_seconds,omitempty"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		OutDelimiter: ",",
		Mode:         "smart_append",
		Lock: Lock{
			TimeoutSeconds: 180,
			PollMillis:     500,
		},
	}
}

// Load reads the defaults file from the user's home directory. A missing file
// yields the built-in defaults; a malformed one is an error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(filepath.Join(home, FileName))
}

// LoadFile reads a specific defaults file, filling unset fields from the
// built-in defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Lock.TimeoutSeconds <= 0 {
		cfg.Lock.TimeoutSeconds = 180
	}
	if cfg.Lock.PollMillis <= 0 {
		cfg.Lock.PollMillis = 500
	}
	return cfg, nil
}

// LockTimeout returns the configured lock timeout.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutSeconds) * time.Second
}

// LockPoll returns the configured lock poll interval.
func (c *Config) LockPoll() time.Duration {
	return time.Duration(c.Lock.PollMillis) * time.Millisecond
}

// LockStale returns the configured staleness threshold, or zero to let the
// lock manager derive it from the timeout.
func (c *Config) LockStale() time.Duration {
	return time.Duration(c.Lock.StaleSeconds) * time.Second
}
