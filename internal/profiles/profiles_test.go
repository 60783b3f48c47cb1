package profiles

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write profiles file: %v", err)
	}
	return path
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d profiles, want 0", len(got))
	}
}

func TestLoadProfiles(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  - name: lab-rover
    url: http://rover.lab:8080
    base_path: /sovd/v1
  - name: sim
    url: http://localhost:9090
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d profiles, want 2", len(got))
	}
	if got[0].Name != "lab-rover" || got[0].BasePath != "/sovd/v1" {
		t.Errorf("first profile = %+v", got[0])
	}

	p, ok := Find(got, "sim")
	if !ok || p.URL != "http://localhost:9090" {
		t.Errorf("Find(sim) = %+v, %v", p, ok)
	}
	if _, ok := Find(got, "nope"); ok {
		t.Error("Find returned a missing profile")
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	for name, content := range map[string]string{
		"missing name": "profiles:\n  - url: http://x\n",
		"missing url":  "profiles:\n  - name: x\n",
		"not yaml":     "{{{",
	} {
		path := writeProfiles(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load did not fail", name)
		}
	}
}
