package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyRetentionKeepsNewestRunDirs(t *testing.T) {
	dir := t.TempDir()
	names := []string{"run-a", "run-b", "run-c"}
	for i, name := range names {
		runDir := filepath.Join(dir, name)
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			t.Fatalf("setup: %v", err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(runDir, modTime, modTime); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	if err := ApplyRetention(dir, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "run-a")); !os.IsNotExist(err) {
		t.Fatalf("expected oldest run dir to be removed, stat err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-b")); err != nil {
		t.Fatalf("expected run-b to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-c")); err != nil {
		t.Fatalf("expected run-c to survive: %v", err)
	}
}

func TestApplyRetentionDisabledByZero(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "run-a")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := ApplyRetention(dir, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(runDir); err != nil {
		t.Fatalf("expected run dir to survive when retention is disabled: %v", err)
	}
}
