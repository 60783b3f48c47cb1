package console

import (
	"context"
	"fmt"
	"strings"

	"sovdscope/internal/schema"
	"sovdscope/internal/sovd"
)

// Detail is the tagged union handed to the detail view, one variant per
// entity kind.
type Detail interface {
	Kind() string
}

// ServerDetail describes the synthetic server root.
type ServerDetail struct {
	Version      *sovd.VersionInfo  `json:"version,omitempty"`
	Capabilities *sovd.Capabilities `json:"capabilities,omitempty"`
}

// AreaDetail describes an area or subarea.
type AreaDetail struct {
	Entity sovd.Entity `json:"entity"`
}

// ComponentDetail describes a component or subcomponent.
type ComponentDetail struct {
	Entity sovd.Entity `json:"entity"`
}

// AppDetail describes an app.
type AppDetail struct {
	Entity sovd.Entity `json:"entity"`
}

// FunctionDetail describes a function.
type FunctionDetail struct {
	Entity sovd.Entity `json:"entity"`
}

// FolderDetail describes a virtual resource folder.
type FolderDetail struct {
	Resource   ResourceKind    `json:"resource"`
	Owner      string          `json:"owner"`
	Collection sovd.Collection `json:"collection"`
}

// TopicDetail describes a topic with its resolved metadata. The direction
// flags always come from the tree placeholder, never from the full fetch.
// PublishTemplate is a zero-valued message synthesized from the topic schema
// for the publish form.
type TopicDetail struct {
	Topic           sovd.TopicInfo         `json:"topic"`
	IsPublisher     bool                   `json:"isPublisher"`
	IsSubscriber    bool                   `json:"isSubscriber"`
	Owner           string                 `json:"owner"`
	Collection      sovd.Collection        `json:"collection"`
	PublishTemplate map[string]interface{} `json:"publishTemplate,omitempty"`
}

// OperationDetail describes a service or action.
type OperationDetail struct {
	Operation  sovd.Operation  `json:"operation"`
	Owner      string          `json:"owner"`
	Collection sovd.Collection `json:"collection"`
}

// ParameterDetail describes a configuration parameter.
type ParameterDetail struct {
	Parameter  sovd.Parameter  `json:"parameter"`
	Owner      string          `json:"owner"`
	Collection sovd.Collection `json:"collection"`
}

// FaultDetail describes a fault record.
type FaultDetail struct {
	Fault sovd.Fault `json:"fault"`
}

// UnknownDetail is the best-effort fallback when a path resolves to nothing.
type UnknownDetail struct {
	Path   string       `json:"path"`
	Entity *sovd.Entity `json:"entity,omitempty"`
}

// Kind tags for the browser-side dispatch.
func (ServerDetail) Kind() string    { return "server" }
func (AreaDetail) Kind() string      { return "area" }
func (ComponentDetail) Kind() string { return "component" }
func (AppDetail) Kind() string       { return "app" }
func (FunctionDetail) Kind() string  { return "function" }
func (FolderDetail) Kind() string    { return "folder" }
func (TopicDetail) Kind() string     { return "topic" }
func (OperationDetail) Kind() string { return "operation" }
func (ParameterDetail) Kind() string { return "parameter" }
func (FaultDetail) Kind() string     { return "fault" }
func (UnknownDetail) Kind() string   { return "unknown" }

// Select resolves the node at path into a typed detail payload, preferring
// cached tree data over network calls. Re-selecting the current path is a
// no-op; selecting a cached topic placeholder performs exactly one network
// call to upgrade it to full metadata.
func (c *Console) Select(ctx context.Context, path string) (Detail, error) {
	c.mu.Lock()
	if path == c.selectedPath && c.selected != nil {
		detail := c.selected
		c.mu.Unlock()
		return detail, nil
	}

	// Materialize the ancestor chain so navigating directly to a deep path
	// expands the tree view without manual pre-expansion.
	var pendingLoads []string
	for _, ancestor := range ancestorPaths(path) {
		node := findNode(c.tree, ancestor)
		if node == nil {
			continue
		}
		if !node.Expanded {
			c.tree, _ = updateNode(c.tree, ancestor, func(n TreeNode) TreeNode {
				n.Expanded = true
				return n
			})
		}
		if node.State == ChildrenNotLoaded {
			pendingLoads = append(pendingLoads, ancestor)
		}
	}

	node := findNode(c.tree, path)
	client := c.client
	version := c.version
	capabilities := c.capabilities
	c.mu.Unlock()

	for _, pending := range pendingLoads {
		go c.LoadChildren(context.Background(), pending)
	}

	var detail Detail
	if node == nil {
		detail = c.resolveUncached(ctx, client, path)
	} else {
		var err error
		detail, err = c.resolveNode(ctx, client, node, version, capabilities)
		if err != nil {
			c.notifier.Notify(LevelWarning, fmt.Sprintf("Failed to resolve %s: %v", path, err))
			detail = UnknownDetail{Path: path, Entity: &node.Entity}
		}
	}

	c.mu.Lock()
	c.selectedPath = path
	c.selected = detail
	c.mu.Unlock()
	c.emit("selection", map[string]interface{}{"path": path, "kind": detail.Kind()})
	return detail, nil
}

// Selected returns the current selection.
func (c *Console) Selected() (string, Detail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedPath, c.selected
}

// ancestorPaths returns every strict ancestor path of the target, shortest
// first: "/a/b/c" yields "/a" and "/a/b".
func ancestorPaths(path string) []string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 2 {
		return nil
	}
	ancestors := make([]string, 0, len(segments)-1)
	current := ""
	for _, segment := range segments[:len(segments)-1] {
		current = current + "/" + segment
		ancestors = append(ancestors, current)
	}
	return ancestors
}

// resolveNode maps a cached tree node to its detail variant. The topic case
// is the only asynchronous one: an unresolved placeholder is upgraded in
// place, exactly once, preserving its direction flags.
func (c *Console) resolveNode(ctx context.Context, client *sovd.Client, node *TreeNode, version *sovd.VersionInfo, capabilities *sovd.Capabilities) (Detail, error) {
	if topic, ok := node.Data.(TopicState); ok {
		return c.resolveTopic(ctx, client, node.Path, topic)
	}

	switch node.Entity.Type {
	case sovd.TypeServer:
		return ServerDetail{Version: version, Capabilities: capabilities}, nil
	case sovd.TypeArea, sovd.TypeSubarea:
		return AreaDetail{Entity: node.Entity}, nil
	case sovd.TypeComponent, sovd.TypeSubcomponent:
		return ComponentDetail{Entity: node.Entity}, nil
	case sovd.TypeApp:
		return AppDetail{Entity: node.Entity}, nil
	case sovd.TypeFunction:
		return FunctionDetail{Entity: node.Entity}, nil
	case sovd.TypeFolder:
		folder, ok := node.Data.(FolderRef)
		if !ok {
			return nil, fmt.Errorf("folder node without folder payload")
		}
		return FolderDetail{Resource: folder.Kind, Owner: folder.Owner, Collection: folder.Collection}, nil
	case sovd.TypeService, sovd.TypeAction:
		op, ok := node.Data.(OperationRef)
		if !ok {
			return nil, fmt.Errorf("operation node without descriptor")
		}
		return OperationDetail{Operation: op.Operation, Owner: op.Owner, Collection: op.Collection}, nil
	case sovd.TypeParameter:
		param, ok := node.Data.(ParameterRef)
		if !ok {
			return nil, fmt.Errorf("parameter node without descriptor")
		}
		return ParameterDetail{Parameter: param.Parameter, Owner: param.Owner, Collection: param.Collection}, nil
	case sovd.TypeFault:
		fault, ok := node.Data.(FaultRef)
		if !ok {
			return nil, fmt.Errorf("fault node without record")
		}
		return FaultDetail{Fault: fault.Fault}, nil
	case sovd.TypeTopic:
		return nil, fmt.Errorf("topic node without topic payload")
	default:
		return UnknownDetail{Path: node.Path, Entity: &node.Entity}, nil
	}
}

// resolveTopic upgrades a topic placeholder to full metadata on first
// selection. A subsequent selection of the same path finds Info already set
// and performs no network call.
func (c *Console) resolveTopic(ctx context.Context, client *sovd.Client, path string, topic TopicState) (Detail, error) {
	if topic.Info == nil {
		if client == nil {
			return nil, fmt.Errorf("not connected")
		}
		info, err := client.Topic(ctx, topic.Collection, topic.Owner, topic.Name)
		if err != nil {
			return nil, err
		}
		// Preserve placeholder direction flags: the full fetch does not
		// necessarily return them.
		topic.Info = info

		c.mu.Lock()
		c.tree, _ = updateNode(c.tree, path, func(n TreeNode) TreeNode {
			n.Data = topic
			return n
		})
		c.mu.Unlock()
	}

	detail := TopicDetail{
		Topic:        *topic.Info,
		IsPublisher:  topic.IsPublisher,
		IsSubscriber: topic.IsSubscriber,
		Owner:        topic.Owner,
		Collection:   topic.Collection,
	}
	if len(topic.Info.Schema) > 0 {
		detail.PublishTemplate = schema.Defaults(topic.Info.Schema)
	}
	return detail, nil
}

// resolveUncached falls back to a direct network fetch when the path is
// absent from the cache, synthesizing a best-effort type guess from path
// depth when that also fails.
func (c *Console) resolveUncached(ctx context.Context, client *sovd.Client, path string) Detail {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	id := segments[len(segments)-1]

	var collection sovd.Collection
	switch len(segments) {
	case 1:
		collection = sovd.CollectionAreas
	case 2:
		collection = sovd.CollectionComponents
	default:
		return UnknownDetail{Path: path}
	}

	if client == nil {
		return UnknownDetail{Path: path}
	}

	entity, err := client.EntityDetail(ctx, collection, id)
	if err != nil {
		c.notifier.Notify(LevelWarning, fmt.Sprintf("Failed to fetch %s: %v", path, err))
		guessed := sovd.Entity{ID: id, Name: id}
		if len(segments) == 1 {
			guessed.Type = sovd.TypeArea
		} else {
			guessed.Type = sovd.TypeComponent
		}
		return UnknownDetail{Path: path, Entity: &guessed}
	}

	switch entity.Type {
	case sovd.TypeArea, sovd.TypeSubarea:
		return AreaDetail{Entity: *entity}
	case sovd.TypeComponent, sovd.TypeSubcomponent:
		return ComponentDetail{Entity: *entity}
	default:
		return UnknownDetail{Path: path, Entity: entity}
	}
}
