package realtime

import (
	"testing"
	"time"
)

func TestWindowReturnsRecentSamples(t *testing.T) {
	m := NewMetrics()

	m.Add(10, 40, 70)
	m.Add(20, 41, 70)

	window := m.Window(time.Minute)
	if len(window) != 2 {
		t.Fatalf("got %d samples, want 2", len(window))
	}
	if window[0].CPUPercent != 10 || window[1].CPUPercent != 20 {
		t.Errorf("samples out of order: %+v", window)
	}

	latest, ok := m.Latest()
	if !ok || latest.CPUPercent != 20 {
		t.Errorf("latest = %+v, ok = %v", latest, ok)
	}
}

func TestLatestEmpty(t *testing.T) {
	m := NewMetrics()
	if _, ok := m.Latest(); ok {
		t.Error("empty store reported a latest sample")
	}
}

func TestCleanupDropsOldSamples(t *testing.T) {
	m := &Metrics{}
	m.samples = []Sample{
		{Time: time.Now().Add(-10 * time.Minute), CPUPercent: 1},
		{Time: time.Now(), CPUPercent: 2},
	}

	m.cleanup()

	if len(m.samples) != 1 || m.samples[0].CPUPercent != 2 {
		t.Errorf("cleanup kept %+v", m.samples)
	}
}
