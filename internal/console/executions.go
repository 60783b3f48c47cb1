package console

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sovdscope/internal/logging"
	"sovdscope/internal/sovd"
)

// TrackedExecution is an operation invocation the console polls. It carries
// the triple needed to poll or cancel it without external context.
type TrackedExecution struct {
	sovd.Execution
	Owner      string          `json:"owner"`
	Collection sovd.Collection `json:"collection"`
	Operation  string          `json:"operation"`
}

// Invoke creates an execution of an operation and tracks it. A non-terminal
// initial status starts the polling loop if it is not already running.
func (c *Console) Invoke(ctx context.Context, collection sovd.Collection, owner, operation string, parameters map[string]interface{}) (*TrackedExecution, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	exec, err := client.InvokeOperation(ctx, collection, owner, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", operation, err)
	}

	tracked := &TrackedExecution{
		Execution:  *exec,
		Owner:      owner,
		Collection: collection,
		Operation:  operation,
	}

	c.mu.Lock()
	c.executions[tracked.ID] = tracked
	if !tracked.Status.Terminal() {
		c.startPollingLocked()
	}
	c.mu.Unlock()

	c.emit("execution", tracked)
	return tracked, nil
}

// Executions returns all tracked executions, newest first. Executions are
// removed only by disconnect; polling self-terminates so idle entries cost
// nothing.
func (c *Console) Executions() []*TrackedExecution {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*TrackedExecution, 0, len(c.executions))
	for _, exec := range c.executions {
		out = append(out, exec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RefreshExecution re-polls a single execution and folds the result into the
// tracked map.
func (c *Console) RefreshExecution(ctx context.Context, id string) (*TrackedExecution, error) {
	c.mu.Lock()
	client := c.client
	tracked, ok := c.executions[id]
	c.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}
	if !ok {
		return nil, fmt.Errorf("unknown execution %q", id)
	}

	exec, err := client.Execution(ctx, tracked.Collection, tracked.Owner, tracked.Operation, id)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh execution: %w", err)
	}
	return c.applyExecutionUpdate(id, exec), nil
}

// CancelExecution requests cooperative cancellation. The server's returned
// status is folded in immediately; if it is still non-terminal, continued
// polling eventually observes the confirmed terminal state.
func (c *Console) CancelExecution(ctx context.Context, id string) (*TrackedExecution, error) {
	c.mu.Lock()
	client := c.client
	tracked, ok := c.executions[id]
	c.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}
	if !ok {
		return nil, fmt.Errorf("unknown execution %q", id)
	}

	exec, err := client.CancelExecution(ctx, tracked.Collection, tracked.Owner, tracked.Operation, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel execution: %w", err)
	}
	return c.applyExecutionUpdate(id, exec), nil
}

func (c *Console) applyExecutionUpdate(id string, exec *sovd.Execution) *TrackedExecution {
	c.mu.Lock()
	tracked, ok := c.executions[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	updated := *tracked
	updated.Status = exec.Status
	if exec.Result != nil {
		updated.Result = exec.Result
	}
	if exec.Error != "" {
		updated.Error = exec.Error
	}
	c.executions[id] = &updated
	c.mu.Unlock()

	c.emit("execution", &updated)
	return &updated
}

// SetAutoRefresh enables or disables the background polling loop. Enabling
// restarts it if non-terminal executions are tracked.
func (c *Console) SetAutoRefresh(enabled bool) {
	c.mu.Lock()
	c.autoRefresh = enabled
	if enabled {
		c.startPollingLocked()
	} else {
		c.stopPollingLocked()
	}
	c.mu.Unlock()
}

// startPollingLocked starts the single shared polling loop if it is not
// already running, auto-refresh is on, a connection exists, and at least one
// non-terminal execution is tracked. Caller must hold c.mu.
func (c *Console) startPollingLocked() {
	if c.pollCancel != nil {
		return
	}
	if !c.autoRefresh || !c.connected {
		return
	}
	if !c.hasActiveExecutionsLocked() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	go c.pollLoop(ctx)
}

// stopPollingLocked cancels the polling loop. Caller must hold c.mu.
func (c *Console) stopPollingLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

func (c *Console) hasActiveExecutionsLocked() bool {
	for _, exec := range c.executions {
		if !exec.Status.Terminal() {
			return true
		}
	}
	return false
}

// pollLoop ticks at the configured interval, refreshing every non-terminal
// execution in parallel. It stops itself as soon as none remain, so no
// execution leaks an idle timer.
func (c *Console) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		client := c.client
		var active []*TrackedExecution
		for _, exec := range c.executions {
			if !exec.Status.Terminal() {
				active = append(active, exec)
			}
		}
		if client == nil || !c.autoRefresh || len(active) == 0 {
			c.stopPollingLocked()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		var wg sync.WaitGroup
		for _, exec := range active {
			wg.Add(1)
			go func(exec *TrackedExecution) {
				defer wg.Done()
				result, err := client.Execution(ctx, exec.Collection, exec.Owner, exec.Operation, exec.ID)
				if err != nil {
					if ctx.Err() == nil {
						logging.Warning("Failed to poll execution %s: %v", exec.ID, err)
					}
					return
				}
				c.applyExecutionUpdate(exec.ID, result)
			}(exec)
		}
		wg.Wait()
	}
}
