package rt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds runtime configuration.
type Config struct {
	// Name labels the runtime instance in logs.
	Name string `toml:"name"`

	// PinThreads locks each worker's goroutine to an OS thread.
	PinThreads bool `toml:"pin-threads"`

	// SweepInterval is the period of the future-registry sweeper. Zero
	// selects the default; a negative value disables the sweeper.
	SweepInterval time.Duration `toml:"-"`

	// SweepIntervalText is the TOML form of SweepInterval ("30s", "5m").
	SweepIntervalText string `toml:"sweep-interval"`

	// SnapshotPath is the optional path of the snapshot database.
	SnapshotPath string `toml:"snapshot-path"`

	// Verbosity is the log verbosity handed to the logging backend.
	Verbosity int `toml:"verbosity"`
}

// DefaultConfig returns a configuration with default values, honoring the
// LOOM_SNAPSHOT_DB environment variable for the snapshot path.
func DefaultConfig() *Config {
	snapshotPath := os.Getenv("LOOM_SNAPSHOT_DB")
	return &Config{
		Name:          "loom",
		SweepInterval: DefaultSweepInterval,
		SnapshotPath:  snapshotPath,
	}
}

// LoadConfig parses a loom.toml file from the given directory, applying
// defaults for anything the file leaves unset.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, "loom.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	if cfg.SweepIntervalText != "" {
		d, err := time.ParseDuration(cfg.SweepIntervalText)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep-interval in %s: %w", path, err)
		}
		cfg.SweepInterval = d
	}
	if cfg.Name == "" {
		cfg.Name = "loom"
	}

	return cfg, nil
}
