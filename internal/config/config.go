// Package config loads server configuration from an optional YAML file with
// command line flag overrides. Flags win over the file, the file wins over
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Audio backend names accepted in config.
const (
	BackendMPD   = "mpd"
	BackendLocal = "local"
)

// MPD holds the MPD connection settings for the mpd audio backend.
type MPD struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// Config is the full server configuration.
type Config struct {
	Port           string `yaml:"port"`
	CatalogBaseURL string `yaml:"catalog_base_url"`
	AudioBackend   string `yaml:"audio_backend"`
	MPD            MPD    `yaml:"mpd"`
	MaxConnections int    `yaml:"max_connections"`
	Debug          bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           "3001",
		CatalogBaseURL: "http://localhost:8000",
		AudioBackend:   BackendLocal,
		MPD: MPD{
			Host: "localhost",
			Port: 6600,
		},
		MaxConnections: 10,
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults; a missing file at an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints.
func (c Config) Validate() error {
	switch c.AudioBackend {
	case BackendMPD, BackendLocal:
	default:
		return fmt.Errorf("unknown audio backend %q (want %q or %q)", c.AudioBackend, BackendMPD, BackendLocal)
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.CatalogBaseURL == "" {
		return fmt.Errorf("catalog base URL must not be empty")
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.MaxConnections)
	}
	return nil
}
