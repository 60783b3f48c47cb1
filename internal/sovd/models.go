// Package sovd implements a typed REST client for SOVD-style diagnostic
// servers that expose ROS 2 concepts (areas, components, apps, functions,
// topics, operations, parameters, faults).
package sovd

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExtensionKey is the vendor-extension field carrying ROS 2 specific
// metadata inside generic SOVD envelopes.
const ExtensionKey = "x-sovd-ros2"

// EntityType classifies a discoverable node in the server hierarchy.
type EntityType string

// Entity types reported by the server (plus the client-only folder type).
const (
	TypeServer       EntityType = "server"
	TypeArea         EntityType = "area"
	TypeSubarea      EntityType = "subarea"
	TypeComponent    EntityType = "component"
	TypeSubcomponent EntityType = "subcomponent"
	TypeApp          EntityType = "app"
	TypeFunction     EntityType = "function"
	TypeTopic        EntityType = "topic"
	TypeService      EntityType = "service"
	TypeAction       EntityType = "action"
	TypeParameter    EntityType = "parameter"
	TypeFault        EntityType = "fault"
	TypeFolder       EntityType = "folder"
)

// Collection is the URL prefix of a resource-bearing entity collection.
type Collection string

// Resource-bearing collections.
const (
	CollectionAreas      Collection = "areas"
	CollectionComponents Collection = "components"
	CollectionApps       Collection = "apps"
	CollectionFunctions  Collection = "functions"
)

// CollectionFor maps an entity type to the collection its resources live
// under. Subareas are addressed through the areas collection and
// subcomponents through the components collection.
func CollectionFor(t EntityType) (Collection, bool) {
	switch t {
	case TypeArea, TypeSubarea:
		return CollectionAreas, true
	case TypeComponent, TypeSubcomponent:
		return CollectionComponents, true
	case TypeApp:
		return CollectionApps, true
	case TypeFunction:
		return CollectionFunctions, true
	default:
		return "", false
	}
}

// Entity is a discoverable node as reported by the server.
type Entity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Href        string     `json:"href"`
	HasChildren bool       `json:"hasChildren"`
}

// Endpoint identifies a ROS node attached to a topic.
type Endpoint struct {
	Node      string `json:"node"`
	Namespace string `json:"namespace,omitempty"`
}

// TopicRef is the minimal topic record returned by data listings. Direction
// flags come from the vendor extension; full metadata requires a per-topic
// fetch.
type TopicRef struct {
	Topic        string `json:"topic"`
	IsPublisher  bool   `json:"isPublisher"`
	IsSubscriber bool   `json:"isSubscriber"`
}

// TopicInfo is the fully resolved topic record.
type TopicInfo struct {
	Topic       string                 `json:"topic"`
	TypeName    string                 `json:"typeName"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Publishers  []Endpoint             `json:"publishers,omitempty"`
	Subscribers []Endpoint             `json:"subscribers,omitempty"`
}

// Operation describes a remotely invokable service or action.
type Operation struct {
	Name          string                 `json:"name"`
	Kind          EntityType             `json:"kind"` // service or action
	Description   string                 `json:"description,omitempty"`
	RequestSchema map[string]interface{} `json:"requestSchema,omitempty"`
}

// ExecutionStatus is the lifecycle state of an operation invocation.
type ExecutionStatus string

// Execution statuses. Pending and running are pollable; the rest are
// terminal.
const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusSucceeded ExecutionStatus = "succeeded"
	StatusCompleted ExecutionStatus = "completed"
	StatusCanceled  ExecutionStatus = "canceled"
	StatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status will never change again on the server.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// Execution is a server-tracked instance of a long-running operation.
type Execution struct {
	ID        string                 `json:"id"`
	Status    ExecutionStatus        `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Parameter is a single configuration entry of an entity.
type Parameter struct {
	Name     string      `json:"name"`
	Value    interface{} `json:"value"`
	Type     string      `json:"type"`
	ReadOnly bool        `json:"read_only"`
	Default  interface{} `json:"default,omitempty"`
}

// FaultSeverity grades a fault.
type FaultSeverity string

// Fault severities.
const (
	SeverityInfo     FaultSeverity = "info"
	SeverityWarning  FaultSeverity = "warning"
	SeverityError    FaultSeverity = "error"
	SeverityCritical FaultSeverity = "critical"
)

// FaultStatus is the server-side state of a fault entry.
type FaultStatus string

// Fault statuses.
const (
	FaultActive  FaultStatus = "active"
	FaultPending FaultStatus = "pending"
	FaultCleared FaultStatus = "cleared"
)

// Fault is a diagnostic trouble entry.
type Fault struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Severity   FaultSeverity `json:"severity"`
	Status     FaultStatus   `json:"status"`
	EntityID   string        `json:"entity_id"`
	Source     string        `json:"source,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
	Count      int           `json:"count,omitempty"`
}

// VersionInfo is the server's identity record.
type VersionInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	RosDistro string `json:"ros_distro,omitempty"`
}

// Capabilities is the root capability document (GET /).
type Capabilities struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// wireItem is the generic shape of a list item: common identity fields plus
// the raw vendor extension, decoded further by the caller.
type wireItem struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type string          `json:"type"`
	Href string          `json:"href"`
	Ext  json.RawMessage `json:"x-sovd-ros2"`
}

// entityExt is the vendor-extension payload on discovery items.
type entityExt struct {
	HasChildren *bool `json:"has_children"`
}

// topicExt is the vendor-extension payload on data items.
type topicExt struct {
	Topic       string                 `json:"topic"`
	TypeName    string                 `json:"type"`
	Schema      map[string]interface{} `json:"schema"`
	Timestamp   time.Time              `json:"timestamp"`
	Publisher   bool                   `json:"publisher"`
	Subscriber  bool                   `json:"subscriber"`
	Publishers  []Endpoint             `json:"publishers"`
	Subscribers []Endpoint             `json:"subscribers"`
}

// operationExt is the vendor-extension payload on operation items.
type operationExt struct {
	Kind          string                 `json:"kind"`
	Description   string                 `json:"description"`
	RequestSchema map[string]interface{} `json:"request_schema"`
}

func (w *wireItem) decode(payload []byte) error {
	if err := json.Unmarshal(payload, w); err != nil {
		return fmt.Errorf("failed to decode entity: %w", err)
	}
	return nil
}

func (w wireItem) entity(fallbackType EntityType) Entity {
	e := Entity{
		ID:          w.ID,
		Name:        w.Name,
		Type:        EntityType(w.Type),
		Href:        w.Href,
		HasChildren: true,
	}
	if e.Type == "" {
		e.Type = fallbackType
	}
	if e.Name == "" {
		e.Name = e.ID
	}
	if len(w.Ext) > 0 {
		var ext entityExt
		if err := json.Unmarshal(w.Ext, &ext); err == nil && ext.HasChildren != nil {
			e.HasChildren = *ext.HasChildren
		}
	}
	return e
}
