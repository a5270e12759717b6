package statsui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFollowSignalsAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keystroke_data.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Follow(ctx, path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a change notification")
	}
}

func TestFollowMissingDirectory(t *testing.T) {
	_, err := Follow(context.Background(), filepath.Join(t.TempDir(), "missing", "state.json"), 0)
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
