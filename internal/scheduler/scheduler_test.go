package scheduler

import (
	"testing"

	"sovdscope/internal/config"
	"sovdscope/internal/realtime"
)

func TestNewRejectsInvalidSchedule(t *testing.T) {
	cfg := &config.Config{HealthSchedule: "not a cron spec"}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("expected error for invalid health schedule")
	}

	cfg = &config.Config{HealthSchedule: "@every 30s", RefreshSchedule: "also bad"}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("expected error for invalid refresh schedule")
	}
}

func TestNewRegistersJobs(t *testing.T) {
	cfg := &config.Config{HealthSchedule: "@every 30s", RefreshSchedule: "@every 5m"}
	s, err := New(cfg, nil, realtime.NewMetrics())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := len(s.cron.Entries()); got != 3 {
		t.Errorf("registered %d jobs, want 3", got)
	}
}
