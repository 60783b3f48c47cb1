package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sovdscope/internal/config"
)

// newSOVDServer fakes a diagnostic server with a fixed route table.
func newSOVDServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()

	base := map[string]string{
		"GET /health":       `{"status":"ok"}`,
		"GET /":             `{"name":"rover","version":"1.0"}`,
		"GET /version-info": `{"name":"rover","version":"1.0","ros_distro":"jazzy"}`,
		"GET /faults":       `[]`,
		"GET /areas":        `[{"id":"drive","name":"Drive"}]`,
	}
	for key, body := range routes {
		base[key] = body
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := base[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		ViewMode:       config.ViewModeAreas,
		PollIntervalMS: 20,
		ProfilesPath:   filepath.Join(t.TempDir(), "profiles.yaml"),
	}
	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.console.Disconnect)

	api := httptest.NewServer(s.Routes())
	t.Cleanup(api.Close)
	return s, api
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return res
}

func decode(t *testing.T, res *http.Response, out interface{}) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func connect(t *testing.T, api *httptest.Server, sovdURL string) {
	t.Helper()
	res := postJSON(t, api.URL+"/api/v1/connection", map[string]string{"url": sovdURL})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("connect returned %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestConnectionLifecycle(t *testing.T) {
	sovd := newSOVDServer(t, nil)
	_, api := newTestServer(t)

	// Initially disconnected
	var state struct {
		Connected bool `json:"connected"`
	}
	res, err := http.Get(api.URL + "/api/v1/connection")
	if err != nil {
		t.Fatalf("GET connection failed: %v", err)
	}
	decode(t, res, &state)
	if state.Connected {
		t.Fatal("connected before connect")
	}

	connect(t, api, sovd.URL)

	res, _ = http.Get(api.URL + "/api/v1/connection")
	decode(t, res, &state)
	if !state.Connected {
		t.Fatal("not connected after connect")
	}

	// Disconnect clears the connection
	req, _ := http.NewRequest(http.MethodDelete, api.URL+"/api/v1/connection", nil)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE connection failed: %v", err)
	}
	res.Body.Close()

	res, _ = http.Get(api.URL + "/api/v1/connection")
	decode(t, res, &state)
	if state.Connected {
		t.Error("still connected after disconnect")
	}
}

func TestConnectFailureIsGatewayError(t *testing.T) {
	_, api := newTestServer(t)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	res := postJSON(t, api.URL+"/api/v1/connection", map[string]string{"url": down.URL})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", res.StatusCode)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	_, api := newTestServer(t)

	res := postJSON(t, api.URL+"/api/v1/connection", map[string]string{})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
}

func TestTreeAndChildren(t *testing.T) {
	sovd := newSOVDServer(t, map[string]string{
		"GET /areas/drive/subareas":   `[]`,
		"GET /areas/drive/components": `[{"id":"motor","name":"Motor"}]`,
	})
	_, api := newTestServer(t)
	connect(t, api, sovd.URL)

	var tree struct {
		Roots []struct {
			Path   string `json:"path"`
			Entity struct {
				Name string `json:"name"`
			} `json:"entity"`
		} `json:"roots"`
	}
	res, err := http.Get(api.URL + "/api/v1/tree")
	if err != nil {
		t.Fatalf("GET tree failed: %v", err)
	}
	decode(t, res, &tree)
	if len(tree.Roots) != 1 || tree.Roots[0].Path != "/drive" {
		t.Fatalf("tree roots = %+v", tree.Roots)
	}

	var loaded struct {
		Node struct {
			ChildState string `json:"childState"`
			Children   []struct {
				Path string `json:"path"`
			} `json:"children"`
		} `json:"node"`
	}
	res = postJSON(t, api.URL+"/api/v1/tree/children", map[string]string{"path": "/drive"})
	decode(t, res, &loaded)
	if loaded.Node.ChildState != "loaded" {
		t.Errorf("child state = %q", loaded.Node.ChildState)
	}
	if len(loaded.Node.Children) != 1 || loaded.Node.Children[0].Path != "/drive/motor" {
		t.Errorf("children = %+v", loaded.Node.Children)
	}
}

func TestSelectReturnsDetailEnvelope(t *testing.T) {
	sovd := newSOVDServer(t, nil)
	_, api := newTestServer(t)
	connect(t, api, sovd.URL)

	var payload struct {
		Path   string `json:"path"`
		Kind   string `json:"kind"`
		Detail struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"detail"`
	}
	res := postJSON(t, api.URL+"/api/v1/selection", map[string]string{"path": "/drive"})
	decode(t, res, &payload)
	if payload.Kind != "area" || payload.Detail.Entity.ID != "drive" {
		t.Errorf("selection = %+v", payload)
	}

	// GET returns the same selection
	res, err := http.Get(api.URL + "/api/v1/selection")
	if err != nil {
		t.Fatalf("GET selection failed: %v", err)
	}
	decode(t, res, &payload)
	if payload.Path != "/drive" {
		t.Errorf("selected path = %q", payload.Path)
	}
}

func TestInvokeAndExecutions(t *testing.T) {
	sovd := newSOVDServer(t, map[string]string{
		"POST /apps/nav/operations/clear_costmap/executions": `{"id":"ex9","status":"succeeded","created_at":"2026-08-23T09:00:00Z"}`,
	})
	_, api := newTestServer(t)
	connect(t, api, sovd.URL)

	var exec struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	res := postJSON(t, api.URL+"/api/v1/operations/invoke", map[string]interface{}{
		"collection": "apps",
		"owner":      "nav",
		"operation":  "clear_costmap",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("invoke returned %d", res.StatusCode)
	}
	decode(t, res, &exec)
	if exec.ID != "ex9" || exec.Status != "succeeded" {
		t.Errorf("execution = %+v", exec)
	}

	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	res, err := http.Get(api.URL + "/api/v1/executions")
	if err != nil {
		t.Fatalf("GET executions failed: %v", err)
	}
	decode(t, res, &list)
	if len(list.Items) != 1 || list.Items[0].ID != "ex9" {
		t.Errorf("executions = %+v", list.Items)
	}
}

func TestInvokeValidatesBody(t *testing.T) {
	sovd := newSOVDServer(t, nil)
	_, api := newTestServer(t)
	connect(t, api, sovd.URL)

	res := postJSON(t, api.URL+"/api/v1/operations/invoke", map[string]string{"operation": "x"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
}

func TestFaultsEndpoint(t *testing.T) {
	sovd := newSOVDServer(t, map[string]string{
		"GET /faults": `[{"code":"E_HOT","entity_id":"motor","severity":"warning","status":"active"}]`,
	})
	_, api := newTestServer(t)
	connect(t, api, sovd.URL)

	var list struct {
		Items []struct {
			Code string `json:"code"`
		} `json:"items"`
	}
	res, err := http.Get(api.URL + "/api/v1/faults")
	if err != nil {
		t.Fatalf("GET faults failed: %v", err)
	}
	decode(t, res, &list)
	if len(list.Items) != 1 || list.Items[0].Code != "E_HOT" {
		t.Errorf("faults = %+v", list.Items)
	}
}

func TestProfilesEndpoint(t *testing.T) {
	s, api := newTestServer(t)

	content := "profiles:\n  - name: lab\n    url: http://lab:8080\n"
	if err := os.WriteFile(s.cfg.ProfilesPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write profiles: %v", err)
	}

	var list struct {
		Items []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"items"`
	}
	res, err := http.Get(api.URL + "/api/v1/profiles")
	if err != nil {
		t.Fatalf("GET profiles failed: %v", err)
	}
	decode(t, res, &list)
	if len(list.Items) != 1 || list.Items[0].Name != "lab" {
		t.Errorf("profiles = %+v", list.Items)
	}
}

func TestVersionEndpoint(t *testing.T) {
	_, api := newTestServer(t)

	res, err := http.Get(api.URL + "/api/v1/version")
	if err != nil {
		t.Fatalf("GET version failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestIndexServesUI(t *testing.T) {
	_, api := newTestServer(t)

	res, err := http.Get(api.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}
