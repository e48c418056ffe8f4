package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/oskargrid/internal/oskar"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath    string // hcl files
	ModulesPath string // runner manifests

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	Oskar oskar.Config
}

// DefaultConfig returns the settings used when neither flags nor a config
// file say otherwise.
func DefaultConfig() Config {
	return Config{
		ModulesPath: "modules",
		LogFormat:   "text",
		LogLevel:    "info",
		WorkerCount: 4,
		Oskar:       oskar.DefaultConfig(),
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.Oskar.InterferometerBin == "" || cfg.Oskar.ImagerBin == "" {
		return nil, errors.New("OSKAR binary paths cannot be empty")
	}
	return &cfg, nil
}
