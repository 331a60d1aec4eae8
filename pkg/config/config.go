// Package config loads the JSON configuration file spec.md §6 describes.
// Grounded on warren/cmd/warren-migrate/main.go's os.Stat/os.IsNotExist
// "create if absent" probe, adapted from a destructive migration guard
// into a load-or-write-default pattern: a missing config file is not an
// error here, it is the common first-run case.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config mirrors the recognized keys in spec.md §6's configuration file.
type Config struct {
	AOF                 bool   `json:"aof"`
	RDB                 bool   `json:"rdb"`
	SnapshotIntervalSecs uint64 `json:"snapshot_interval_secs"`
	SnapshotThreshold    uint64 `json:"snapshot_threshold"`
	MetricsEnabled      bool   `json:"metrics_enabled"`
	MetricsPort         uint16 `json:"metrics_port"`
	SlowlogThresholdMs  uint64 `json:"slowlog_threshold_ms"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		AOF:                  true,
		RDB:                  true,
		SnapshotIntervalSecs: 300,
		SnapshotThreshold:    1000,
		MetricsEnabled:       true,
		MetricsPort:          9090,
		SlowlogThresholdMs:   100,
	}
}

// Load reads the config file at path, writing and returning the default
// configuration if the file does not exist yet (spec.md §6: "If the
// file is absent, a default is written at startup").
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if writeErr := write(path, cfg); writeErr != nil {
			return Config{}, fmt.Errorf("writing default config: %w", writeErr)
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
