package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/verte-zerg/ctrlq/internal/config"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/store"
)

// StateFile is the locked state file a capture writes, with its loaded baseline.
type StateFile struct {
	Store    *store.FileStore
	Baseline model.State
	lock     *store.Lock
}

// Path returns the state file location.
func (s *StateFile) Path() string {
	return s.Store.Path()
}

// Close releases the state file lock.
func (s *StateFile) Close() error {
	return s.lock.Release()
}

// OpenState resolves the state file, locks it and loads the baseline. When
// the chosen file turns out to be unreadable the working-directory copy is
// used instead; startup fails only if that cannot be loaded either.
func OpenState(ctx context.Context, preferred string, logger *slog.Logger) (*StateFile, error) {
	path, err := config.ResolveDataPath(preferred)
	if err != nil {
		return nil, err
	}
	if path != preferred {
		logger.Warn("preferred state file unusable, using fallback", "preferred", preferred, "path", path)
	}
	sf, err := openState(ctx, path, logger)
	if err == nil || !errors.Is(err, store.ErrUnreadable) || config.IsFallbackDataPath(path) {
		return sf, err
	}

	fallback, ferr := config.ResolveDataPath("")
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	logger.Warn("state file unreadable, using fallback", "path", path, "fallback", fallback, "err", err)
	sf, ferr = openState(ctx, fallback, logger)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return sf, nil
}

func openState(ctx context.Context, path string, logger *slog.Logger) (*StateFile, error) {
	lock, err := store.AcquireLock(path)
	if err != nil {
		return nil, err
	}
	fileStore := store.NewFileStore(path)
	st, err := LoadBaseline(ctx, fileStore, logger)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	return &StateFile{Store: fileStore, Baseline: st, lock: lock}, nil
}
