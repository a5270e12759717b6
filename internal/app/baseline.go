package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/store"
)

// Loader reads the persisted baseline.
type Loader interface {
	Load(ctx context.Context) (model.State, error)
}

// LoadBaseline loads persisted state. A corrupt file is logged and replaced
// by an empty baseline; any other failure is returned.
func LoadBaseline(ctx context.Context, l Loader, logger *slog.Logger) (model.State, error) {
	st, err := l.Load(ctx)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, store.ErrCorrupt) {
		logger.Warn("ignoring corrupt state file, starting fresh", "err", err)
		return model.State{}, nil
	}
	return model.State{}, err
}
