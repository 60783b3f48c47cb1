package config

import "time"

// Discovery view modes.
const (
	// ViewModeAreas roots the entity tree at the server's area hierarchy
	ViewModeAreas = "areas"
	// ViewModeFunctions roots the entity tree at the functional view
	ViewModeFunctions = "functions"
)

// Request timeout classes for the SOVD transport client.
const (
	// HealthTimeout bounds connectivity probes
	HealthTimeout = 3 * time.Second
	// DataTimeout bounds ordinary data-bearing requests
	DataTimeout = 10 * time.Second
	// InvokeTimeout bounds long-running operation invocation requests
	InvokeTimeout = 30 * time.Second
)

// Background work defaults.
const (
	// DefaultPollInterval is the execution polling period
	DefaultPollInterval = 1 * time.Second
	// DefaultHealthSchedule is the cron spec for the connectivity probe
	DefaultHealthSchedule = "@every 30s"
	// StreamReconnectDelay is the wait before reopening a dropped fault stream
	StreamReconnectDelay = 5 * time.Second
	// HealthFailureThreshold is how many consecutive probe failures mark the
	// console disconnected
	HealthFailureThreshold = 3
)
