package console

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"sovdscope/internal/sovd"
)

const paramsKey = "GET /apps/controller/configurations"

func TestParametersCachedAfterFirstFetch(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set(paramsKey, `{"items":[
		{"name":"max_speed","value":1.5,"type":"double"},
		{"name":"frame_id","value":"base_link","type":"string","read_only":true}
	]}`)

	c, _ := newConnectedConsole(t, m)

	params, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller")
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("got %d parameters", len(params))
	}

	if _, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("second Parameters failed: %v", err)
	}
	if got := m.count(paramsKey); got != 1 {
		t.Errorf("configurations fetched %d times, want 1", got)
	}
}

func TestSetParameterPatchesCacheOptimistically(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set(paramsKey, `[{"name":"max_speed","value":1.5,"type":"double"}]`)
	m.set("PUT /apps/controller/configurations/max_speed", `{}`)

	c, _ := newConnectedConsole(t, m)
	if _, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}

	if err := c.SetParameter(context.Background(), sovd.CollectionApps, "controller", "max_speed", 2.5); err != nil {
		t.Fatalf("SetParameter failed: %v", err)
	}

	params, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller")
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if params[0].Value != 2.5 {
		t.Errorf("cached value = %v, want 2.5", params[0].Value)
	}
	// A write patches the cache by name instead of re-fetching
	if got := m.count(paramsKey); got != 1 {
		t.Errorf("configurations fetched %d times after set, want 1", got)
	}
}

func TestResetParameterRefetchesCollection(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set(paramsKey, `[{"name":"max_speed","value":2.5,"type":"double"}]`)
	m.set("DELETE /apps/controller/configurations/max_speed", `{}`)

	c, _ := newConnectedConsole(t, m)
	if _, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}

	// The server decides the restored default, so a reset must re-fetch
	m.set(paramsKey, `[{"name":"max_speed","value":1.0,"type":"double","default":1.0}]`)
	if err := c.ResetParameter(context.Background(), sovd.CollectionApps, "controller", "max_speed"); err != nil {
		t.Fatalf("ResetParameter failed: %v", err)
	}

	params, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller")
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}
	if params[0].Value != 1.0 {
		t.Errorf("value after reset = %v, want server-restored 1.0", params[0].Value)
	}
	if got := m.count(paramsKey); got != 2 {
		t.Errorf("configurations fetched %d times, want 2 (initial + reset reload)", got)
	}
}

func TestResetAllParametersRefetches(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set(paramsKey, `[{"name":"max_speed","value":3.0,"type":"double"}]`)
	m.set("DELETE /apps/controller/configurations", `{}`)

	c, _ := newConnectedConsole(t, m)
	if _, err := c.Parameters(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}

	m.set(paramsKey, `[{"name":"max_speed","value":1.0,"type":"double"}]`)
	if err := c.ResetAllParameters(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("ResetAllParameters failed: %v", err)
	}

	params, _ := c.Parameters(context.Background(), sovd.CollectionApps, "controller")
	if params[0].Value != 1.0 {
		t.Errorf("value after reset-all = %v", params[0].Value)
	}
}

func TestPublishData(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set("PUT /apps/controller/data/cmd_vel", `{}`)

	c, _ := newConnectedConsole(t, m)

	err := c.PublishData(context.Background(), sovd.CollectionApps, "controller", "cmd_vel",
		map[string]interface{}{"linear": map[string]interface{}{"x": 0.5}})
	if err != nil {
		t.Fatalf("PublishData failed: %v", err)
	}
	if got := m.count("PUT /apps/controller/data/cmd_vel"); got != 1 {
		t.Errorf("publish called %d times", got)
	}
}

func TestPublishCompletesMessageFromSchema(t *testing.T) {
	m := newMockServer(t)
	c := setupResourceTree(t, m)

	m.set("GET /apps/controller/data/cmd_vel",
		`{"id":"cmd_vel","x-sovd-ros2":{"topic":"cmd_vel","type":"geometry_msgs/msg/Twist",
			"schema":{"linear":{"type":"object","fields":{"x":{"type":"float64"},"y":{"type":"float64"}}},"frame":{"type":"string"}}}}`)

	// Selecting the topic caches its schema in the tree
	if _, err := c.Select(context.Background(), "/drive/motor/controller/data/cmd_vel"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	var body map[string]interface{}
	m.handleFunc("PUT /apps/controller/data/cmd_vel", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode published body: %v", err)
		}
		w.Write([]byte(`{}`))
	})

	err := c.PublishData(context.Background(), sovd.CollectionApps, "controller", "cmd_vel",
		map[string]interface{}{"linear": map[string]interface{}{"x": 0.5}})
	if err != nil {
		t.Fatalf("PublishData failed: %v", err)
	}

	// The wire body wraps the message in a data envelope
	published, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data envelope = %T", body["data"])
	}

	// Fields the caller left out arrive with schema zero values
	if published["frame"] != "" {
		t.Errorf("frame = %v, want empty string", published["frame"])
	}
	linear, ok := published["linear"].(map[string]interface{})
	if !ok {
		t.Fatalf("linear = %T", published["linear"])
	}
	if linear["x"] != 0.5 {
		t.Errorf("linear.x = %v", linear["x"])
	}
	if linear["y"] != 0.0 {
		t.Errorf("linear.y = %v, want schema default", linear["y"])
	}
}
