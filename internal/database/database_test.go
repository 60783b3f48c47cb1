//go:build cgo
// +build cgo

package database

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func TestRememberedServerEmptyByDefault(t *testing.T) {
	store := openTestStore(t)

	url, basePath, err := store.RememberedServer()
	if err != nil {
		t.Fatalf("RememberedServer failed: %v", err)
	}
	if url != "" || basePath != "" {
		t.Errorf("got (%q, %q), want empty", url, basePath)
	}
}

func TestRememberServerRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.RememberServer("http://rover.local:8080", "/sovd/v1"); err != nil {
		t.Fatalf("RememberServer failed: %v", err)
	}

	url, basePath, err := store.RememberedServer()
	if err != nil {
		t.Fatalf("RememberedServer failed: %v", err)
	}
	if url != "http://rover.local:8080" {
		t.Errorf("url = %q", url)
	}
	if basePath != "/sovd/v1" {
		t.Errorf("basePath = %q", basePath)
	}

	// A later connect overwrites the single remembered entry
	if err := store.RememberServer("http://other.local:9090", ""); err != nil {
		t.Fatalf("RememberServer failed: %v", err)
	}
	url, _, err = store.RememberedServer()
	if err != nil {
		t.Fatalf("RememberedServer failed: %v", err)
	}
	if url != "http://other.local:9090" {
		t.Errorf("url after overwrite = %q", url)
	}
}

func TestHistoryDeduplicatesByURL(t *testing.T) {
	store := openTestStore(t)

	for _, url := range []string{"http://a:1", "http://b:2", "http://a:1"} {
		if err := store.RememberServer(url, ""); err != nil {
			t.Fatalf("RememberServer(%q) failed: %v", url, err)
		}
	}

	entries, err := store.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d history entries, want 2", len(entries))
	}
}
