// Package config loads console configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration settings for the console.
type Config struct {
	// ListenAddr is the address and port for the console web server
	ListenAddr string `toml:"listen_addr"`

	// DatabasePath is the path to the SQLite database file
	DatabasePath string `toml:"database_path"`

	// ProfilesPath is the path to the optional connection profiles file
	ProfilesPath string `toml:"profiles_path"`

	// ServerURL is the default SOVD server to offer on the connect screen
	ServerURL string `toml:"server_url"`

	// BasePath is the path prefix under which the SOVD API is mounted
	BasePath string `toml:"base_path"`

	// ViewMode selects the discovery root: "areas" or "functions"
	ViewMode string `toml:"view_mode"`

	// PollIntervalMS is the execution polling period in milliseconds
	PollIntervalMS int `toml:"poll_interval_ms"`

	// HealthSchedule is a cron spec for the background connectivity probe
	HealthSchedule string `toml:"health_schedule"`

	// RefreshSchedule is an optional cron spec for forced discovery rebuilds
	RefreshSchedule string `toml:"refresh_schedule"`

	// TelemetryEndpoint is the OTLP/HTTP endpoint; empty disables tracing
	TelemetryEndpoint string `toml:"telemetry_endpoint"`
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		ListenAddr:     ":8090",
		DatabasePath:   "sovdscope.db",
		ProfilesPath:   "profiles.yaml",
		BasePath:       "/",
		ViewMode:       ViewModeAreas,
		PollIntervalMS: int(DefaultPollInterval / time.Millisecond),
		HealthSchedule: DefaultHealthSchedule,
	}
}

// Load loads the configuration from file and environment variables.
func Load() (*Config, error) {
	config := defaultConfig()

	configPath := os.Getenv("SOVDSCOPE_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	// Environment variables override file settings
	if addr := os.Getenv("SOVDSCOPE_LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if dbPath := os.Getenv("SOVDSCOPE_DATABASE_PATH"); dbPath != "" {
		config.DatabasePath = dbPath
	}
	if profiles := os.Getenv("SOVDSCOPE_PROFILES_PATH"); profiles != "" {
		config.ProfilesPath = profiles
	}
	if serverURL := os.Getenv("SOVDSCOPE_SERVER_URL"); serverURL != "" {
		config.ServerURL = serverURL
	}
	if basePath := os.Getenv("SOVDSCOPE_BASE_PATH"); basePath != "" {
		config.BasePath = basePath
	}
	if mode := os.Getenv("SOVDSCOPE_VIEW_MODE"); mode != "" {
		config.ViewMode = mode
	}
	if interval := os.Getenv("SOVDSCOPE_POLL_INTERVAL_MS"); interval != "" {
		parsed, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SOVDSCOPE_POLL_INTERVAL_MS: %w", err)
		}
		config.PollIntervalMS = parsed
	}
	if schedule := os.Getenv("SOVDSCOPE_HEALTH_SCHEDULE"); schedule != "" {
		config.HealthSchedule = schedule
	}
	if schedule := os.Getenv("SOVDSCOPE_REFRESH_SCHEDULE"); schedule != "" {
		config.RefreshSchedule = schedule
	}
	if endpoint := os.Getenv("SOVDSCOPE_TELEMETRY_ENDPOINT"); endpoint != "" {
		config.TelemetryEndpoint = endpoint
	}

	if config.ViewMode != ViewModeAreas && config.ViewMode != ViewModeFunctions {
		return nil, fmt.Errorf("invalid view_mode %q (expected %q or %q)", config.ViewMode, ViewModeAreas, ViewModeFunctions)
	}
	if config.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("poll_interval_ms must be positive, got %d", config.PollIntervalMS)
	}

	// Keep the database path absolute so the working directory does not matter
	if !filepath.IsAbs(config.DatabasePath) {
		absPath, err := filepath.Abs(config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for database_path: %w", err)
		}
		config.DatabasePath = absPath
	}

	return config, nil
}

// PollInterval returns the execution polling period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("ListenAddr: %s", c.ListenAddr))
	parts = append(parts, fmt.Sprintf("DatabasePath: %s", c.DatabasePath))
	parts = append(parts, fmt.Sprintf("ViewMode: %s", c.ViewMode))
	parts = append(parts, fmt.Sprintf("PollInterval: %s", c.PollInterval()))
	return strings.Join(parts, ", ")
}
