package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOVDSCOPE_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":8090")
	}
	if cfg.ViewMode != ViewModeAreas {
		t.Errorf("ViewMode = %q, want %q", cfg.ViewMode, ViewModeAreas)
	}
	if cfg.PollInterval() != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval(), DefaultPollInterval)
	}
	if cfg.HealthSchedule != DefaultHealthSchedule {
		t.Errorf("HealthSchedule = %q, want %q", cfg.HealthSchedule, DefaultHealthSchedule)
	}
	if !filepath.IsAbs(cfg.DatabasePath) {
		t.Errorf("DatabasePath %q is not absolute", cfg.DatabasePath)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
listen_addr = ":9999"
server_url = "http://rover.local:8080"
view_mode = "functions"
poll_interval_ms = 250
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("SOVDSCOPE_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9999")
	}
	if cfg.ServerURL != "http://rover.local:8080" {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, "http://rover.local:8080")
	}
	if cfg.ViewMode != ViewModeFunctions {
		t.Errorf("ViewMode = %q, want %q", cfg.ViewMode, ViewModeFunctions)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte(`listen_addr = ":9999"`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("SOVDSCOPE_CONFIG", configPath)
	t.Setenv("SOVDSCOPE_LISTEN_ADDR", ":7070")
	t.Setenv("SOVDSCOPE_SERVER_URL", "http://env.example:1234")
	t.Setenv("SOVDSCOPE_BASE_PATH", "/sovd")
	t.Setenv("SOVDSCOPE_HEALTH_SCHEDULE", "@every 10s")
	t.Setenv("SOVDSCOPE_REFRESH_SCHEDULE", "@every 5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want env override %q", cfg.ListenAddr, ":7070")
	}
	if cfg.ServerURL != "http://env.example:1234" {
		t.Errorf("ServerURL = %q, want env override", cfg.ServerURL)
	}
	if cfg.BasePath != "/sovd" {
		t.Errorf("BasePath = %q, want env override", cfg.BasePath)
	}
	if cfg.HealthSchedule != "@every 10s" {
		t.Errorf("HealthSchedule = %q, want env override", cfg.HealthSchedule)
	}
	if cfg.RefreshSchedule != "@every 5m" {
		t.Errorf("RefreshSchedule = %q, want env override", cfg.RefreshSchedule)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "invalid view mode",
			env:  map[string]string{"SOVDSCOPE_VIEW_MODE": "topology"},
		},
		{
			name: "non-numeric poll interval",
			env:  map[string]string{"SOVDSCOPE_POLL_INTERVAL_MS": "fast"},
		},
		{
			name: "non-positive poll interval",
			env:  map[string]string{"SOVDSCOPE_POLL_INTERVAL_MS": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SOVDSCOPE_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}
