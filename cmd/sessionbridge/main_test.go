package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	content := "backend_url: http://127.0.0.1:9999\nstore_path: " +
		filepath.Join(dir, "store.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// setup reads the package-level flag vars; point them at the temp config.
	oldConfig, oldURL := configPath, backendURL
	configPath, backendURL = path, ""
	defer func() { configPath, backendURL = oldConfig, oldURL }()

	// Nothing here touches the backend: setup only builds the stack.
	c, cleanup, err := setup()
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer cleanup()
	if c == nil {
		t.Fatal("setup returned a nil cache")
	}
}

func TestSetup_MalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{{not yaml"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	oldConfig := configPath
	configPath = path
	defer func() { configPath = oldConfig }()

	if _, _, err := setup(); err == nil {
		t.Fatal("Expected error for malformed config")
	}
}
