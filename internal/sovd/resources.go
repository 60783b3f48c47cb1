package sovd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func resourcePath(collection Collection, id string, parts ...string) string {
	path := "/" + string(collection) + "/" + url.PathEscape(id)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

// Data lists the topics of an entity. Direction flags arrive through the
// vendor extension; full metadata requires Topic. A 404 means the entity has
// no data resource.
func (c *Client) Data(ctx context.Context, collection Collection, id string) ([]TopicRef, error) {
	items, err := c.getList(ctx, resourcePath(collection, id, "data"), true)
	if err != nil {
		return nil, err
	}

	refs := make([]TopicRef, 0, len(items))
	for _, raw := range items {
		var item wireItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode data item: %w", err)
		}
		ref := TopicRef{Topic: item.ID}
		if len(item.Ext) > 0 {
			var ext topicExt
			if err := json.Unmarshal(item.Ext, &ext); err != nil {
				return nil, fmt.Errorf("failed to decode data extension: %w", err)
			}
			if ext.Topic != "" {
				ref.Topic = ext.Topic
			}
			ref.IsPublisher = ext.Publisher
			ref.IsSubscriber = ext.Subscriber
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Topic fetches the fully resolved record for a single topic. The response
// does not necessarily carry direction flags; callers that already know them
// must preserve them.
func (c *Client) Topic(ctx context.Context, collection Collection, id, topic string) (*TopicInfo, error) {
	payload, err := c.do(ctx, c.data, http.MethodGet, resourcePath(collection, id, "data", topic), nil)
	if err != nil {
		return nil, err
	}

	var item wireItem
	if err := item.decode(payload); err != nil {
		return nil, err
	}

	info := TopicInfo{Topic: item.ID}
	if len(item.Ext) > 0 {
		var ext topicExt
		if err := json.Unmarshal(item.Ext, &ext); err != nil {
			return nil, fmt.Errorf("failed to decode topic extension: %w", err)
		}
		if ext.Topic != "" {
			info.Topic = ext.Topic
		}
		info.TypeName = ext.TypeName
		info.Schema = ext.Schema
		info.Timestamp = ext.Timestamp
		info.Publishers = ext.Publishers
		info.Subscribers = ext.Subscribers
	}
	return &info, nil
}

// PublishData publishes a message to a topic the entity subscribes to.
func (c *Client) PublishData(ctx context.Context, collection Collection, id, topic string, message map[string]interface{}) error {
	body := map[string]interface{}{"data": message}
	_, err := c.do(ctx, c.data, http.MethodPut, resourcePath(collection, id, "data", topic), body)
	return err
}

// Operations lists the services and actions of an entity. A 404 means the
// entity exposes none.
func (c *Client) Operations(ctx context.Context, collection Collection, id string) ([]Operation, error) {
	items, err := c.getList(ctx, resourcePath(collection, id, "operations"), true)
	if err != nil {
		return nil, err
	}

	ops := make([]Operation, 0, len(items))
	for _, raw := range items {
		var item wireItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode operation: %w", err)
		}
		op := Operation{Name: item.ID, Kind: TypeService}
		if len(item.Ext) > 0 {
			var ext operationExt
			if err := json.Unmarshal(item.Ext, &ext); err != nil {
				return nil, fmt.Errorf("failed to decode operation extension: %w", err)
			}
			if ext.Kind != "" {
				op.Kind = EntityType(ext.Kind)
			}
			op.Description = ext.Description
			op.RequestSchema = ext.RequestSchema
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// InvokeOperation creates an execution of an operation and returns its
// initial state. Uses the long invocation timeout class.
func (c *Client) InvokeOperation(ctx context.Context, collection Collection, id, operation string, parameters map[string]interface{}) (*Execution, error) {
	body := map[string]interface{}{"parameters": parameters}
	payload, err := c.do(ctx, c.invoke, http.MethodPost, resourcePath(collection, id, "operations", operation, "executions"), body)
	if err != nil {
		return nil, err
	}

	var exec Execution
	if err := json.Unmarshal(payload, &exec); err != nil {
		return nil, fmt.Errorf("failed to decode execution: %w", err)
	}
	return &exec, nil
}

// Execution polls the state of an in-flight execution.
func (c *Client) Execution(ctx context.Context, collection Collection, id, operation, executionID string) (*Execution, error) {
	var exec Execution
	path := resourcePath(collection, id, "operations", operation, "executions", executionID)
	if err := c.getJSON(ctx, c.data, path, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// CancelExecution requests cooperative cancellation and returns the status
// the server reports. Cancellation is not guaranteed to be immediate.
func (c *Client) CancelExecution(ctx context.Context, collection Collection, id, operation, executionID string) (*Execution, error) {
	path := resourcePath(collection, id, "operations", operation, "executions", executionID)
	payload, err := c.do(ctx, c.data, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}

	var exec Execution
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &exec); err != nil {
			return nil, fmt.Errorf("failed to decode cancel response: %w", err)
		}
	}
	if exec.ID == "" {
		exec.ID = executionID
	}
	return &exec, nil
}

// Parameters lists the configuration entries of an entity. A 404 means the
// entity has no configuration resource.
func (c *Client) Parameters(ctx context.Context, collection Collection, id string) ([]Parameter, error) {
	items, err := c.getList(ctx, resourcePath(collection, id, "configurations"), true)
	if err != nil {
		return nil, err
	}

	params := make([]Parameter, 0, len(items))
	for _, raw := range items {
		var p Parameter
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, nil
}

// SetParameter writes a single configuration value.
func (c *Client) SetParameter(ctx context.Context, collection Collection, id, name string, value interface{}) error {
	body := map[string]interface{}{"value": value}
	_, err := c.do(ctx, c.data, http.MethodPut, resourcePath(collection, id, "configurations", name), body)
	return err
}

// ResetParameter restores a single configuration entry to its default.
func (c *Client) ResetParameter(ctx context.Context, collection Collection, id, name string) error {
	_, err := c.do(ctx, c.data, http.MethodDelete, resourcePath(collection, id, "configurations", name), nil)
	return err
}

// ResetAllParameters restores every configuration entry of the entity.
func (c *Client) ResetAllParameters(ctx context.Context, collection Collection, id string) error {
	_, err := c.do(ctx, c.data, http.MethodDelete, resourcePath(collection, id, "configurations"), nil)
	return err
}

// Faults lists the fault entries of an entity. A 404 means the entity has no
// fault resource.
func (c *Client) Faults(ctx context.Context, collection Collection, id string) ([]Fault, error) {
	return c.decodeFaults(c.getList(ctx, resourcePath(collection, id, "faults"), true))
}

// AllFaults lists every fault known to the server.
func (c *Client) AllFaults(ctx context.Context) ([]Fault, error) {
	return c.decodeFaults(c.getList(ctx, "/faults", true))
}

func (c *Client) decodeFaults(items []json.RawMessage, err error) ([]Fault, error) {
	if err != nil {
		return nil, err
	}
	faults := make([]Fault, 0, len(items))
	for _, raw := range items {
		var f Fault
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("failed to decode fault: %w", err)
		}
		faults = append(faults, f)
	}
	return faults, nil
}

// ClearFault acknowledges and clears a single fault of an entity.
func (c *Client) ClearFault(ctx context.Context, collection Collection, id, code string) error {
	_, err := c.do(ctx, c.data, http.MethodDelete, resourcePath(collection, id, "faults", code), nil)
	return err
}

// ClearAllFaults clears every fault of an entity.
func (c *Client) ClearAllFaults(ctx context.Context, collection Collection, id string) error {
	_, err := c.do(ctx, c.data, http.MethodDelete, resourcePath(collection, id, "faults"), nil)
	return err
}
