// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package config loads the one persisted notebook setting — decimal display
// precision — from $XDG_CONFIG_HOME/calcnote/config.yaml.
package config

import (
	"os"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the persisted notebook configuration.
type Config struct {
	Precision uint32 `yaml:"precision"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{Precision: 20}
}

// Load reads $XDG_CONFIG_HOME/calcnote/config.yaml, returning Default() if
// the file does not exist. Precision is clamped to [0, 20].
func Load() (Config, error) {
	path, err := xdg.ConfigFile("calcnote/config.yaml")
	if err != nil {
		return Default(), errors.Wrap(err, "resolving config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), errors.Wrap(err, "reading config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), errors.Wrap(err, "parsing config file")
	}
	if cfg.Precision > 20 {
		cfg.Precision = 20
	}
	return cfg, nil
}

// Save writes cfg to $XDG_CONFIG_HOME/calcnote/config.yaml.
func Save(cfg Config) error {
	path, err := xdg.ConfigFile("calcnote/config.yaml")
	if err != nil {
		return errors.Wrap(err, "resolving config path")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	return os.WriteFile(path, data, 0o644)
}
