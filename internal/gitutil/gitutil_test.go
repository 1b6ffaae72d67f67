package gitutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRemoveMissingDirIsFine(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "never-created")); err != nil {
		t.Errorf("Expected no error removing missing dir, got %v", err)
	}
}

func TestRemovePlainTree(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "repo")
	if err := os.MkdirAll(filepath.Join(target, ".git", "objects"), 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, ".git", "objects", "pack"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := Remove(target); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Expected directory to be removed")
	}
}

func TestRemoveResetsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits behave differently on windows")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "repo")
	locked := filepath.Join(target, "locked")
	if err := os.MkdirAll(locked, 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(locked, "object"), []byte("x"), 0o444); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	// Unwritable directory makes the first RemoveAll fail
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	t.Cleanup(func() {
		os.Chmod(locked, 0o755) //nolint:errcheck // best-effort cleanup
	})

	if err := Remove(target); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Expected directory to be removed")
	}
}
