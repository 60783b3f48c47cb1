package sovd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Health probes server connectivity with a short timeout.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, c.health, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Capabilities fetches the root capability document.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	var caps Capabilities
	if err := c.getJSON(ctx, c.data, "/", &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// VersionInfo fetches the server identity record.
func (c *Client) VersionInfo(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.getJSON(ctx, c.data, "/version-info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Refresh asks the server to rebuild its discovery cache.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.do(ctx, c.invoke, http.MethodPost, "/refresh", nil)
	return err
}

// Areas lists the top-level areas.
func (c *Client) Areas(ctx context.Context) ([]Entity, error) {
	return c.getEntities(ctx, "/areas", TypeArea)
}

// Subareas lists the child areas of an area.
func (c *Client) Subareas(ctx context.Context, areaID string) ([]Entity, error) {
	return c.getEntities(ctx, "/areas/"+url.PathEscape(areaID)+"/subareas", TypeSubarea)
}

// Components lists the components attached to an area.
func (c *Client) Components(ctx context.Context, areaID string) ([]Entity, error) {
	return c.getEntities(ctx, "/areas/"+url.PathEscape(areaID)+"/components", TypeComponent)
}

// Subcomponents lists the child components of a component.
func (c *Client) Subcomponents(ctx context.Context, componentID string) ([]Entity, error) {
	return c.getEntities(ctx, "/components/"+url.PathEscape(componentID)+"/subcomponents", TypeSubcomponent)
}

// ComponentApps lists the apps hosted by a component.
func (c *Client) ComponentApps(ctx context.Context, componentID string) ([]Entity, error) {
	return c.getEntities(ctx, "/components/"+url.PathEscape(componentID)+"/hosts", TypeApp)
}

// Functions lists the functional view roots.
func (c *Client) Functions(ctx context.Context) ([]Entity, error) {
	return c.getEntities(ctx, "/functions", TypeFunction)
}

// FunctionApps lists the apps hosting a function.
func (c *Client) FunctionApps(ctx context.Context, functionID string) ([]Entity, error) {
	return c.getEntities(ctx, "/functions/"+url.PathEscape(functionID)+"/hosts", TypeApp)
}

// EntityDetail fetches a single entity record directly, used as a fallback
// when a selected path is not present in the tree cache.
func (c *Client) EntityDetail(ctx context.Context, collection Collection, id string) (*Entity, error) {
	payload, err := c.do(ctx, c.data, http.MethodGet, "/"+string(collection)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var item wireItem
	if err := item.decode(payload); err != nil {
		return nil, err
	}
	entity := item.entity(entityTypeForCollection(collection))
	return &entity, nil
}

func entityTypeForCollection(collection Collection) EntityType {
	switch collection {
	case CollectionAreas:
		return TypeArea
	case CollectionComponents:
		return TypeComponent
	case CollectionApps:
		return TypeApp
	case CollectionFunctions:
		return TypeFunction
	default:
		return ""
	}
}
