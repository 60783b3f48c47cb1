// Package console owns all client-side state of the diagnostic console: the
// entity tree cache, the current selection, tracked operation executions,
// configuration parameter caches, and the fault list. All mutation is
// funneled through methods on Console; the HTTP layer only reads snapshots.
package console

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sovdscope/internal/config"
	"sovdscope/internal/database"
	"sovdscope/internal/logging"
	"sovdscope/internal/sovd"
)

// Console is the process-wide state container. Initialized empty at startup,
// populated on Connect, fully cleared on Disconnect except the remembered
// server URL, which persists across sessions.
type Console struct {
	mu sync.Mutex

	cfg      *config.Config
	store    *database.Store
	notifier Notifier
	sink     EventSink

	client    *sovd.Client
	connected bool
	serverURL string
	basePath  string
	viewMode  string

	capabilities *sovd.Capabilities
	version      *sovd.VersionInfo

	tree         []*TreeNode
	loadingPaths map[string]struct{}
	selectedPath string
	selected     Detail

	operations map[string][]sovd.Operation
	parameters map[string][]sovd.Parameter
	executions map[string]*TrackedExecution
	faults     []sovd.Fault

	autoRefresh  bool
	pollInterval time.Duration
	pollCancel   context.CancelFunc
	streamCancel context.CancelFunc

	healthFailures int
}

// New creates an empty console. The store may be nil (no persistence); the
// notifier defaults to logging.
func New(cfg *config.Config, store *database.Store, notifier Notifier) *Console {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Console{
		cfg:          cfg,
		store:        store,
		notifier:     notifier,
		viewMode:     cfg.ViewMode,
		loadingPaths: make(map[string]struct{}),
		operations:   make(map[string][]sovd.Operation),
		parameters:   make(map[string][]sovd.Parameter),
		executions:   make(map[string]*TrackedExecution),
		autoRefresh:  true,
		pollInterval: cfg.PollInterval(),
	}
}

// SetEventSink attaches the push channel used to notify browsers of state
// changes. Must be called before Connect.
func (c *Console) SetEventSink(sink EventSink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

func (c *Console) emit(event string, payload interface{}) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(event, payload)
	}
}

// Connect probes the server, persists the URL, and builds the initial tree.
// A failed probe is a blocking connection error: no partial state is
// retained.
func (c *Console) Connect(ctx context.Context, rawURL, basePath string) error {
	client, err := sovd.NewClient(rawURL, basePath)
	if err != nil {
		return err
	}

	if err := client.Health(ctx); err != nil {
		if sovd.IsTimeout(err) {
			return fmt.Errorf("server unreachable: %w", err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	// Reconnecting replaces the session wholesale: the previous session's
	// poll loop, fault stream, and caches must not leak into the new one.
	if c.Connected() {
		c.Disconnect()
	}

	// Identity and capabilities are best-effort; the console works without
	// them.
	capabilities, err := client.Capabilities(ctx)
	if err != nil {
		logging.Warning("Failed to fetch capabilities: %v", err)
	}
	version, err := client.VersionInfo(ctx)
	if err != nil {
		logging.Warning("Failed to fetch version info: %v", err)
	}

	c.mu.Lock()
	c.client = client
	c.connected = true
	c.serverURL = client.BaseURL()
	c.basePath = basePath
	c.capabilities = capabilities
	c.version = version
	c.healthFailures = 0
	store := c.store
	c.mu.Unlock()

	if store != nil {
		if err := store.RememberServer(rawURL, basePath); err != nil {
			logging.Warning("Failed to persist server URL: %v", err)
		}
	}

	if err := c.LoadRoot(ctx); err != nil {
		c.Disconnect()
		return err
	}

	if err := c.LoadAllFaults(ctx); err != nil {
		c.notifier.Notify(LevelWarning, fmt.Sprintf("Failed to load faults: %v", err))
	}
	c.startFaultStream()

	c.emit("connection", map[string]interface{}{"connected": true, "serverUrl": client.BaseURL()})
	return nil
}

// Disconnect stops background work and clears all state except the
// remembered server URL.
func (c *Console) Disconnect() {
	c.mu.Lock()
	c.stopPollingLocked()
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	c.client = nil
	c.connected = false
	c.serverURL = ""
	c.capabilities = nil
	c.version = nil
	c.tree = nil
	c.loadingPaths = make(map[string]struct{})
	c.selectedPath = ""
	c.selected = nil
	c.operations = make(map[string][]sovd.Operation)
	c.parameters = make(map[string][]sovd.Parameter)
	c.executions = make(map[string]*TrackedExecution)
	c.faults = nil
	c.healthFailures = 0
	c.mu.Unlock()

	c.emit("connection", map[string]interface{}{"connected": false})
}

// Connected reports whether a server connection is active.
func (c *Console) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ServerURL returns the normalized URL of the connected server.
func (c *Console) ServerURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverURL
}

// ServerInfo returns the identity and capability documents fetched at
// connect time; either may be nil.
func (c *Console) ServerInfo() (*sovd.VersionInfo, *sovd.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, c.capabilities
}

// RememberedServer returns the persisted server URL and base path from the
// last successful connect, if any.
func (c *Console) RememberedServer() (string, string) {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	if store == nil {
		return "", ""
	}
	url, basePath, err := store.RememberedServer()
	if err != nil {
		logging.Warning("Failed to read remembered server: %v", err)
		return "", ""
	}
	return url, basePath
}

// ProbeHealth pings the connected server. After HealthFailureThreshold
// consecutive failures the console disconnects and surfaces a blocking
// error. Used by the background scheduler.
func (c *Console) ProbeHealth(ctx context.Context) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return
	}

	if err := client.Health(ctx); err != nil {
		c.mu.Lock()
		c.healthFailures++
		failures := c.healthFailures
		c.mu.Unlock()

		logging.Warning("Health probe failed (%d/%d): %v", failures, config.HealthFailureThreshold, err)
		if failures >= config.HealthFailureThreshold {
			c.notifier.Notify(LevelError, "Lost connection to server")
			c.Disconnect()
		}
		return
	}

	c.mu.Lock()
	c.healthFailures = 0
	c.mu.Unlock()
}

// RefreshDiscovery asks the server to rebuild its discovery cache, then
// reloads the tree from scratch.
func (c *Console) RefreshDiscovery(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh server cache: %w", err)
	}
	return c.LoadRoot(ctx)
}
