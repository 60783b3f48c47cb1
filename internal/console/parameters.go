package console

import (
	"context"
	"fmt"

	"sovdscope/internal/schema"
	"sovdscope/internal/sovd"
)

// Parameters returns the configuration entries of an entity, fetching and
// caching them on first access.
func (c *Console) Parameters(ctx context.Context, collection sovd.Collection, owner string) ([]sovd.Parameter, error) {
	c.mu.Lock()
	client := c.client
	cached, ok := c.parameters[owner]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	params, err := client.Parameters(ctx, collection, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}

	c.mu.Lock()
	c.parameters[owner] = params
	c.mu.Unlock()
	return params, nil
}

// Operations returns the operations of an entity, fetching and caching them
// on first access.
func (c *Console) Operations(ctx context.Context, collection sovd.Collection, owner string) ([]sovd.Operation, error) {
	c.mu.Lock()
	client := c.client
	cached, ok := c.operations[owner]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	ops, err := client.Operations(ctx, collection, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}

	c.mu.Lock()
	c.operations[owner] = ops
	c.mu.Unlock()
	return ops, nil
}

// SetParameter writes a value and optimistically patches the cached entry by
// name rather than re-fetching the collection. Reset paths re-fetch instead,
// because the server decides the restored defaults.
func (c *Console) SetParameter(ctx context.Context, collection sovd.Collection, owner, name string, value interface{}) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.SetParameter(ctx, collection, owner, name, value); err != nil {
		return fmt.Errorf("failed to set parameter %s: %w", name, err)
	}

	c.mu.Lock()
	if cached, ok := c.parameters[owner]; ok {
		patched := make([]sovd.Parameter, len(cached))
		copy(patched, cached)
		for i := range patched {
			if patched[i].Name == name {
				patched[i].Value = value
				break
			}
		}
		c.parameters[owner] = patched
	}
	c.mu.Unlock()

	c.emit("parameters", map[string]interface{}{"owner": owner})
	return nil
}

// ResetParameter restores a single entry to its default and re-fetches the
// whole collection for consistency.
func (c *Console) ResetParameter(ctx context.Context, collection sovd.Collection, owner, name string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.ResetParameter(ctx, collection, owner, name); err != nil {
		return fmt.Errorf("failed to reset parameter %s: %w", name, err)
	}
	return c.reloadParameters(ctx, client, collection, owner)
}

// ResetAllParameters restores every entry and re-fetches the collection.
func (c *Console) ResetAllParameters(ctx context.Context, collection sovd.Collection, owner string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if err := client.ResetAllParameters(ctx, collection, owner); err != nil {
		return fmt.Errorf("failed to reset parameters: %w", err)
	}
	return c.reloadParameters(ctx, client, collection, owner)
}

func (c *Console) reloadParameters(ctx context.Context, client *sovd.Client, collection sovd.Collection, owner string) error {
	params, err := client.Parameters(ctx, collection, owner)
	if err != nil {
		return fmt.Errorf("failed to reload parameters: %w", err)
	}

	c.mu.Lock()
	c.parameters[owner] = params
	c.mu.Unlock()

	c.emit("parameters", map[string]interface{}{"owner": owner})
	return nil
}

// PublishData publishes a message to a topic through the owning entity. When
// the topic's schema is known, the message is completed against it: fields
// the caller left out are sent with their schema zero values so the server
// always receives a full message.
func (c *Console) PublishData(ctx context.Context, collection sovd.Collection, owner, topic string, message map[string]interface{}) error {
	c.mu.Lock()
	client := c.client
	info := findTopicInfo(c.tree, owner, topic)
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("not connected")
	}

	if info != nil && len(info.Schema) > 0 {
		message = schema.DeepMerge(schema.Defaults(info.Schema), message)
	}

	if err := client.PublishData(ctx, collection, owner, topic, message); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
