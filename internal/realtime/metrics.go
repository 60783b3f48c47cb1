// Package realtime keeps a short rolling window of host metrics in memory,
// sampled by the background scheduler and served to the browser for the
// vitals sparkline.
package realtime

import (
	"sync"
	"time"
)

// retention is how much history the store keeps.
const retention = 5 * time.Minute

// Sample is one host measurement at a point in time.
type Sample struct {
	Time        time.Time `json:"time"`
	CPUPercent  float64   `json:"cpuPercent"`
	MemPercent  float64   `json:"memPercent"`
	DiskPercent float64   `json:"diskPercent"`
}

// Metrics is the in-memory rolling window.
type Metrics struct {
	mu      sync.RWMutex
	samples []Sample
}

// NewMetrics creates an empty store and starts its cleanup loop.
func NewMetrics() *Metrics {
	m := &Metrics{
		samples: make([]Sample, 0, 128),
	}
	go m.cleanupLoop()
	return m
}

// Add records a measurement.
func (m *Metrics) Add(cpuPercent, memPercent, diskPercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, Sample{
		Time:        time.Now(),
		CPUPercent:  cpuPercent,
		MemPercent:  memPercent,
		DiskPercent: diskPercent,
	})
}

// Window returns the samples recorded within the last duration, oldest first.
func (m *Metrics) Window(duration time.Duration) []Sample {
	if duration <= 0 || duration > retention {
		duration = retention
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-duration)
	out := make([]Sample, 0, len(m.samples))
	for _, s := range m.samples {
		if s.Time.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the most recent sample.
func (m *Metrics) Latest() (Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.samples) == 0 {
		return Sample{}, false
	}
	return m.samples[len(m.samples)-1], true
}

func (m *Metrics) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

func (m *Metrics) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	start := 0
	for i, s := range m.samples {
		if s.Time.After(cutoff) {
			start = i
			break
		}
		start = i + 1
	}
	if start > 0 {
		m.samples = append(m.samples[:0], m.samples[start:]...)
	}
}
