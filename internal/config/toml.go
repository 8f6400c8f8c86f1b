// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Catalog CatalogConfig `toml:"catalog"`
	Gating  GatingConfig  `toml:"gating"`
	Stats   StatsConfig   `toml:"stats"`
	View    ViewConfig    `toml:"view"`
}

// CatalogConfig maps the catalog source.
type CatalogConfig struct {
	Path *string `toml:"path"`
}

// GatingConfig maps prerequisite settings.
type GatingConfig struct {
	Policy *string `toml:"policy"`
}

// StatsConfig maps completion eligibility toggles.
type StatsConfig struct {
	IncludeZeroCredit *bool `toml:"include-zero-credit"`
	IncludeExtra      *bool `toml:"include-extra"`
}

// ViewConfig maps grid visibility defaults.
type ViewConfig struct {
	ShowLocked *bool `toml:"show-locked"`
	ShowTaking *bool `toml:"show-taking"`
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
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
