package console

import (
	"context"
	"fmt"
	"time"

	"sovdscope/internal/config"
	"sovdscope/internal/logging"
	"sovdscope/internal/sovd"
)

// Faults returns the current fault list.
func (c *Console) Faults() []sovd.Fault {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sovd.Fault, len(c.faults))
	copy(out, c.faults)
	return out
}

// LoadAllFaults replaces the fault list with a fresh batch fetch.
func (c *Console) LoadAllFaults(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	faults, err := client.AllFaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to load faults: %w", err)
	}

	c.mu.Lock()
	c.faults = faults
	c.mu.Unlock()
	c.emit("faults", nil)
	return nil
}

// ApplyFault reconciles a pushed fault event into the list: an event
// matching an existing entry by code and entity id replaces it in place, a
// new pair appends.
func (c *Console) ApplyFault(fault sovd.Fault) {
	c.mu.Lock()
	replaced := false
	for i := range c.faults {
		if c.faults[i].Code == fault.Code && c.faults[i].EntityID == fault.EntityID {
			c.faults[i] = fault
			replaced = true
			break
		}
	}
	if !replaced {
		c.faults = append(c.faults, fault)
	}
	c.mu.Unlock()

	c.emit("fault", fault)
	if !replaced && fault.Severity == sovd.SeverityCritical {
		c.notifier.Notify(LevelError, fmt.Sprintf("Critical fault %s: %s", fault.Code, fault.Message))
	}
}

// ClearFault clears a single fault on the server, then marks the local entry
// cleared.
func (c *Console) ClearFault(ctx context.Context, collection sovd.Collection, owner, code string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.ClearFault(ctx, collection, owner, code); err != nil {
		return fmt.Errorf("failed to clear fault %s: %w", code, err)
	}

	c.mu.Lock()
	for i := range c.faults {
		if c.faults[i].Code == code && c.faults[i].EntityID == owner {
			c.faults[i].Status = sovd.FaultCleared
			break
		}
	}
	c.mu.Unlock()
	c.emit("faults", nil)
	return nil
}

// ClearAllFaults clears every fault of an entity, then re-fetches the global
// list for consistency.
func (c *Console) ClearAllFaults(ctx context.Context, collection sovd.Collection, owner string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.ClearAllFaults(ctx, collection, owner); err != nil {
		return fmt.Errorf("failed to clear faults: %w", err)
	}
	return c.LoadAllFaults(ctx)
}

// startFaultStream consumes the server's fault push stream in the
// background, reconnecting with a fixed delay until disconnect.
func (c *Console) startFaultStream() {
	c.mu.Lock()
	if c.streamCancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.streamCancel = cancel
	c.mu.Unlock()

	go c.runFaultStream(ctx)
}

func (c *Console) runFaultStream(ctx context.Context) {
	for {
		c.mu.Lock()
		client := c.client
		c.mu.Unlock()
		if client == nil || ctx.Err() != nil {
			return
		}

		events, err := client.StreamFaults(ctx)
		if err != nil {
			logging.Warning("Failed to open fault stream: %v", err)
		} else {
			for fault := range events {
				c.ApplyFault(fault)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(config.StreamReconnectDelay):
		}
	}
}
