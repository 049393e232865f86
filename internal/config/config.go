// Package config loads the server configuration for the serve command.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the serve command configuration, read from a YAML file with
// sensible defaults for local use.
type Config struct {
	Listen string `yaml:"listen"`

	// FlowDir is the directory of flow JSON documents.
	FlowDir string `yaml:"flow_dir"`

	Redis struct {
		// Addr empty means sessions stay in memory.
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// Lock enables the distributed session locker.
		Lock bool `yaml:"lock"`
	} `yaml:"redis"`

	// SweepInterval (Go duration, e.g. "5m") enables the background session
	// sweep. Empty disables it.
	SweepInterval string `yaml:"sweep_interval"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Listen:   ":8080",
		FlowDir:  "./flows",
		LogLevel: "info",
	}
	return cfg
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
