package cli

import "context"

// Exit codes returned by Execute.
const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
	ExitInvalidUsage = 2
)

// CheckResult is the outcome of probing a diagnostic server.
type CheckResult struct {
	Healthy      bool     `json:"healthy"`
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`
	RosDistro    string   `json:"rosDistro,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Profile is a named server connection, as listed by `profiles list`.
type Profile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	BasePath string `json:"basePath,omitempty"`
}

// Event is one line of CLI output; JSONL when --json is set.
type Event struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Manager abstracts core operations for the CLI.
type Manager interface {
	// Serve runs the console server until the context is canceled.
	Serve(ctx context.Context) error

	// Check probes a diagnostic server and reports its identity.
	Check(ctx context.Context, rawURL, basePath string) (CheckResult, error)

	// ProfileList returns the configured connection profiles.
	ProfileList(ctx context.Context) ([]Profile, error)
}
