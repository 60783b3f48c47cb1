package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sovdscope/internal/config"
	"sovdscope/internal/sovd"
)

// ChildState tracks the lazy-load state of a node's children. An explicit
// enum keeps "loaded, no children" distinguishable from "not fetched yet".
type ChildState int

// Child states.
const (
	ChildrenNotLoaded ChildState = iota
	ChildrenLoading
	ChildrenLoaded
)

// MarshalJSON renders the state as a readable tag for the browser.
func (s ChildState) MarshalJSON() ([]byte, error) {
	switch s {
	case ChildrenLoading:
		return []byte(`"loading"`), nil
	case ChildrenLoaded:
		return []byte(`"loaded"`), nil
	default:
		return []byte(`"not_loaded"`), nil
	}
}

// ResourceKind names a virtual folder grouping an entity's resources.
type ResourceKind string

// Virtual folder kinds.
const (
	ResourceData           ResourceKind = "data"
	ResourceOperations     ResourceKind = "operations"
	ResourceConfigurations ResourceKind = "configurations"
	ResourceFaults         ResourceKind = "faults"
)

var resourceFolders = []ResourceKind{ResourceData, ResourceOperations, ResourceConfigurations, ResourceFaults}

// NodeData is the type-dependent payload attached to a tree node.
type NodeData interface {
	nodeData()
}

// TopicState is the single discriminated topic payload. Info is nil until
// the first selection upgrades the placeholder to full metadata; the
// direction flags survive the upgrade because the full fetch does not
// necessarily return them.
type TopicState struct {
	Name         string          `json:"name"`
	IsPublisher  bool            `json:"isPublisher"`
	IsSubscriber bool            `json:"isSubscriber"`
	Info         *sovd.TopicInfo `json:"info,omitempty"`
	Owner        string          `json:"-"`
	Collection   sovd.Collection `json:"-"`
}

// OperationRef attaches an operation descriptor to a tree node.
type OperationRef struct {
	Operation  sovd.Operation  `json:"operation"`
	Owner      string          `json:"-"`
	Collection sovd.Collection `json:"-"`
}

// ParameterRef attaches a parameter descriptor to a tree node.
type ParameterRef struct {
	Parameter  sovd.Parameter  `json:"parameter"`
	Owner      string          `json:"-"`
	Collection sovd.Collection `json:"-"`
}

// FaultRef attaches a fault record to a tree node.
type FaultRef struct {
	Fault sovd.Fault `json:"fault"`
}

// FolderRef marks a virtual folder node, a client-only grouping with no
// server-side identity.
type FolderRef struct {
	Kind       ResourceKind    `json:"kind"`
	Owner      string          `json:"-"`
	Collection sovd.Collection `json:"-"`
}

// ServerRef attaches the server identity to the synthetic root node used in
// the functional view mode.
type ServerRef struct {
	Version sovd.VersionInfo `json:"version"`
}

func (TopicState) nodeData()   {}
func (OperationRef) nodeData() {}
func (ParameterRef) nodeData() {}
func (FaultRef) nodeData()     {}
func (FolderRef) nodeData()    {}
func (ServerRef) nodeData()    {}

// TreeNode is a client-side mirror of a discovered entity. Path is the
// client-assigned slash-joined address, independent of the server's href.
type TreeNode struct {
	Entity   sovd.Entity `json:"entity"`
	Path     string      `json:"path"`
	State    ChildState  `json:"childState"`
	Expanded bool        `json:"expanded"`
	Children []*TreeNode `json:"children,omitempty"`
	Data     NodeData    `json:"data,omitempty"`
}

func newTreeNode(parentPath string, e sovd.Entity) *TreeNode {
	return &TreeNode{
		Entity: e,
		Path:   parentPath + "/" + e.ID,
		State:  ChildrenNotLoaded,
	}
}

func newLeafNode(parentPath string, e sovd.Entity, data NodeData) *TreeNode {
	node := newTreeNode(parentPath, e)
	node.State = ChildrenLoaded
	node.Entity.HasChildren = false
	node.Data = data
	return node
}

// findNode locates the node whose path equals the target, by recursive
// linear search.
func findNode(nodes []*TreeNode, path string) *TreeNode {
	for _, node := range nodes {
		if node.Path == path {
			return node
		}
		if strings.HasPrefix(path, node.Path+"/") {
			if found := findNode(node.Children, path); found != nil {
				return found
			}
		}
	}
	return nil
}

// findTopicInfo locates resolved topic metadata for an owner's topic anywhere
// in the tree. Returns nil when the topic is absent or still a placeholder.
func findTopicInfo(nodes []*TreeNode, owner, name string) *sovd.TopicInfo {
	for _, node := range nodes {
		if topic, ok := node.Data.(TopicState); ok && topic.Owner == owner && topic.Name == name {
			return topic.Info
		}
		if info := findTopicInfo(node.Children, owner, name); info != nil {
			return info
		}
	}
	return nil
}

// updateNode replaces the node at path via the pure updater, reconstructing
// only the chain of ancestors down to that node. Siblings and unrelated
// subtrees keep their identity so reference-equality memoization in view
// layers does not over-render. The bool reports whether the path was found.
func updateNode(nodes []*TreeNode, path string, fn func(TreeNode) TreeNode) ([]*TreeNode, bool) {
	for i, node := range nodes {
		if node.Path == path {
			updated := fn(*node)
			out := make([]*TreeNode, len(nodes))
			copy(out, nodes)
			out[i] = &updated
			return out, true
		}
		if strings.HasPrefix(path, node.Path+"/") {
			children, found := updateNode(node.Children, path, fn)
			if !found {
				continue
			}
			ancestor := *node
			ancestor.Children = children
			out := make([]*TreeNode, len(nodes))
			copy(out, nodes)
			out[i] = &ancestor
			return out, true
		}
	}
	return nodes, false
}

// LoadRoot fetches the top-level entity collection and replaces the entire
// tree. In the functional view mode a synthetic server root node wraps the
// server's identity metadata. Idempotent; always safe to call after
// (re)connect.
func (c *Console) LoadRoot(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	mode := c.viewMode
	version := c.version
	c.mu.Unlock()

	if client == nil {
		return fmt.Errorf("not connected")
	}

	var tree []*TreeNode
	switch mode {
	case config.ViewModeFunctions:
		functions, err := client.Functions(ctx)
		if err != nil {
			return fmt.Errorf("failed to load functions: %w", err)
		}

		root := &TreeNode{
			Entity: sovd.Entity{
				ID:          "server",
				Name:        serverDisplayName(version),
				Type:        sovd.TypeServer,
				HasChildren: true,
			},
			Path:     "/server",
			State:    ChildrenLoaded,
			Expanded: true,
		}
		if version != nil {
			root.Data = ServerRef{Version: *version}
		}
		for _, fn := range functions {
			root.Children = append(root.Children, newTreeNode(root.Path, fn))
		}
		tree = []*TreeNode{root}

	default:
		areas, err := client.Areas(ctx)
		if err != nil {
			return fmt.Errorf("failed to load areas: %w", err)
		}
		for _, area := range areas {
			tree = append(tree, newTreeNode("", area))
		}
	}

	c.mu.Lock()
	c.tree = tree
	c.loadingPaths = make(map[string]struct{})
	c.selectedPath = ""
	c.selected = nil
	c.mu.Unlock()
	c.emit("tree", nil)
	return nil
}

func serverDisplayName(version *sovd.VersionInfo) string {
	if version != nil && version.Name != "" {
		return version.Name
	}
	return "Server"
}

// LoadChildren lazily populates the children of the node at path. It is a
// no-op while the path is mid-load or when non-empty children are already
// cached. Fetch failure degrades to "not loaded" (so a later attempt can
// retry) plus a warning notification; it never propagates an error.
func (c *Console) LoadChildren(ctx context.Context, path string) {
	c.mu.Lock()
	if c.client == nil {
		c.mu.Unlock()
		return
	}
	if _, loading := c.loadingPaths[path]; loading {
		c.mu.Unlock()
		return
	}
	node := findNode(c.tree, path)
	if node == nil {
		c.mu.Unlock()
		return
	}
	if node.State == ChildrenLoaded && len(node.Children) > 0 {
		c.mu.Unlock()
		return
	}

	c.loadingPaths[path] = struct{}{}
	c.tree, _ = updateNode(c.tree, path, func(n TreeNode) TreeNode {
		n.State = ChildrenLoading
		return n
	})
	entity := node.Entity
	data := node.Data
	client := c.client
	c.mu.Unlock()

	children, err := c.fetchChildren(ctx, client, path, entity, data)

	c.mu.Lock()
	delete(c.loadingPaths, path)
	if err != nil {
		c.tree, _ = updateNode(c.tree, path, func(n TreeNode) TreeNode {
			n.State = ChildrenNotLoaded
			n.Children = nil
			return n
		})
		c.mu.Unlock()
		c.notifier.Notify(LevelWarning, fmt.Sprintf("Failed to load children of %s: %v", entity.Name, err))
		return
	}
	c.tree, _ = updateNode(c.tree, path, func(n TreeNode) TreeNode {
		n.State = ChildrenLoaded
		n.Children = children
		return n
	})
	c.mu.Unlock()
	c.emit("tree", nil)
}

// fetchChildren performs the type-appropriate child fetch. Independent
// sibling collections are fetched in parallel; sub-hierarchy nodes
// (subareas, subcomponents) are listed before leaf-ish siblings for
// deterministic ordering.
func (c *Console) fetchChildren(ctx context.Context, client *sovd.Client, path string, entity sovd.Entity, data NodeData) ([]*TreeNode, error) {
	switch entity.Type {
	case sovd.TypeArea, sovd.TypeSubarea:
		var subareas, components []sovd.Entity
		var subErr, compErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			subareas, subErr = client.Subareas(ctx, entity.ID)
		}()
		go func() {
			defer wg.Done()
			components, compErr = client.Components(ctx, entity.ID)
		}()
		wg.Wait()
		if subErr != nil {
			return nil, subErr
		}
		if compErr != nil {
			return nil, compErr
		}
		return entityNodes(path, subareas, components), nil

	case sovd.TypeComponent, sovd.TypeSubcomponent:
		var subcomponents, apps []sovd.Entity
		var subErr, appErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			subcomponents, subErr = client.Subcomponents(ctx, entity.ID)
		}()
		go func() {
			defer wg.Done()
			apps, appErr = client.ComponentApps(ctx, entity.ID)
		}()
		wg.Wait()
		if subErr != nil {
			return nil, subErr
		}
		if appErr != nil {
			return nil, appErr
		}
		return entityNodes(path, subcomponents, apps), nil

	case sovd.TypeFunction:
		apps, err := client.FunctionApps(ctx, entity.ID)
		if err != nil {
			return nil, err
		}
		return entityNodes(path, apps), nil

	case sovd.TypeApp:
		return folderNodes(path, entity), nil

	case sovd.TypeFolder:
		folder, ok := data.(FolderRef)
		if !ok {
			return nil, fmt.Errorf("folder node %s has no folder payload", path)
		}
		return c.fetchFolderChildren(ctx, client, path, folder)

	default:
		return []*TreeNode{}, nil
	}
}

func entityNodes(parentPath string, groups ...[]sovd.Entity) []*TreeNode {
	var nodes []*TreeNode
	for _, group := range groups {
		for _, e := range group {
			nodes = append(nodes, newTreeNode(parentPath, e))
		}
	}
	if nodes == nil {
		nodes = []*TreeNode{}
	}
	return nodes
}

// folderNodes synthesizes the virtual resource folders under an app.
func folderNodes(parentPath string, owner sovd.Entity) []*TreeNode {
	collection, ok := sovd.CollectionFor(owner.Type)
	if !ok {
		return []*TreeNode{}
	}

	nodes := make([]*TreeNode, 0, len(resourceFolders))
	for _, kind := range resourceFolders {
		node := newTreeNode(parentPath, sovd.Entity{
			ID:          string(kind),
			Name:        folderDisplayName(kind),
			Type:        sovd.TypeFolder,
			HasChildren: true,
		})
		node.Data = FolderRef{Kind: kind, Owner: owner.ID, Collection: collection}
		nodes = append(nodes, node)
	}
	return nodes
}

func folderDisplayName(kind ResourceKind) string {
	switch kind {
	case ResourceData:
		return "Data"
	case ResourceOperations:
		return "Operations"
	case ResourceConfigurations:
		return "Configurations"
	case ResourceFaults:
		return "Faults"
	default:
		return string(kind)
	}
}

// fetchFolderChildren resolves a virtual folder into resource leaf nodes.
// Operations and parameters are also written into the per-entity caches so
// detail views find them without another round-trip.
func (c *Console) fetchFolderChildren(ctx context.Context, client *sovd.Client, path string, folder FolderRef) ([]*TreeNode, error) {
	switch folder.Kind {
	case ResourceData:
		refs, err := client.Data(ctx, folder.Collection, folder.Owner)
		if err != nil {
			return nil, err
		}
		nodes := make([]*TreeNode, 0, len(refs))
		for _, ref := range refs {
			nodes = append(nodes, newLeafNode(path, sovd.Entity{
				ID:   ref.Topic,
				Name: ref.Topic,
				Type: sovd.TypeTopic,
			}, TopicState{
				Name:         ref.Topic,
				IsPublisher:  ref.IsPublisher,
				IsSubscriber: ref.IsSubscriber,
				Owner:        folder.Owner,
				Collection:   folder.Collection,
			}))
		}
		return nodes, nil

	case ResourceOperations:
		ops, err := client.Operations(ctx, folder.Collection, folder.Owner)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.operations[folder.Owner] = ops
		c.mu.Unlock()

		nodes := make([]*TreeNode, 0, len(ops))
		for _, op := range ops {
			kind := op.Kind
			if kind != sovd.TypeService && kind != sovd.TypeAction {
				kind = sovd.TypeService
			}
			nodes = append(nodes, newLeafNode(path, sovd.Entity{
				ID:   op.Name,
				Name: op.Name,
				Type: kind,
			}, OperationRef{Operation: op, Owner: folder.Owner, Collection: folder.Collection}))
		}
		return nodes, nil

	case ResourceConfigurations:
		params, err := client.Parameters(ctx, folder.Collection, folder.Owner)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.parameters[folder.Owner] = params
		c.mu.Unlock()

		nodes := make([]*TreeNode, 0, len(params))
		for _, p := range params {
			nodes = append(nodes, newLeafNode(path, sovd.Entity{
				ID:   p.Name,
				Name: p.Name,
				Type: sovd.TypeParameter,
			}, ParameterRef{Parameter: p, Owner: folder.Owner, Collection: folder.Collection}))
		}
		return nodes, nil

	case ResourceFaults:
		faults, err := client.Faults(ctx, folder.Collection, folder.Owner)
		if err != nil {
			return nil, err
		}
		nodes := make([]*TreeNode, 0, len(faults))
		for _, f := range faults {
			if f.EntityID == "" {
				f.EntityID = folder.Owner
			}
			nodes = append(nodes, newLeafNode(path, sovd.Entity{
				ID:   f.Code,
				Name: f.Code,
				Type: sovd.TypeFault,
			}, FaultRef{Fault: f}))
		}
		return nodes, nil

	default:
		return nil, fmt.Errorf("unknown resource folder %q", folder.Kind)
	}
}

// SetExpanded toggles the expand flag of the node at path.
func (c *Console) SetExpanded(path string, expanded bool) {
	c.mu.Lock()
	c.tree, _ = updateNode(c.tree, path, func(n TreeNode) TreeNode {
		n.Expanded = expanded
		return n
	})
	c.mu.Unlock()
}

// Tree returns the current tree roots. Nodes are immutable snapshots; every
// mutation goes through updateNode copies.
func (c *Console) Tree() []*TreeNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Node returns the node at path, or nil.
func (c *Console) Node(path string) *TreeNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return findNode(c.tree, path)
}
