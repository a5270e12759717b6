package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lock is an advisory lock on a state file, held by a capture for its lifetime.
type Lock struct {
	f *os.File
}

// AcquireLock takes the lock for statePath without blocking. It fails with
// ErrLocked while another process holds it.
func AcquireLock(statePath string) (*Lock, error) {
	path := statePath + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", statePath, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := unlockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return f.Close()
}
