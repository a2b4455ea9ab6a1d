// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/sprint/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Sprint SprintConfig `toml:"sprint"`
	Stats  StatsConfig  `toml:"stats"`
}

// SprintConfig maps drill settings. Nil fields are unset.
type SprintConfig struct {
	TimeLimit    *int  `toml:"time-limit"`
	MinFactor    *int  `toml:"min-factor"`
	MaxFactor    *int  `toml:"max-factor"`
	NoDuplicates *bool `toml:"no-duplicates"`
}

// StatsConfig maps stats output options.
type StatsConfig struct {
	WeakTop     *int `toml:"weak-top"`
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the set fields onto s.
func (c SprintConfig) Apply(s model.Settings) model.Settings {
	if c.TimeLimit != nil {
		s.TimeLimitMinutes = *c.TimeLimit
	}
	if c.MinFactor != nil {
		s.MinFactor = *c.MinFactor
	}
	if c.MaxFactor != nil {
		s.MaxFactor = *c.MaxFactor
	}
	if c.NoDuplicates != nil {
		s.NoDuplicates = *c.NoDuplicates
	}
	return s
}
