// Package app wires the event source, the engine and persistence together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/ctrlq/internal/input"
	"github.com/verte-zerg/ctrlq/internal/logging"
	"github.com/verte-zerg/ctrlq/internal/model"
)

// DefaultSaveInterval is how often the autosaver persists a snapshot.
const DefaultSaveInterval = 30 * time.Second

const finalSaveTimeout = 10 * time.Second

// Engine is the part of the aggregation engine the runner drives.
type Engine interface {
	Record(ev model.KeyEvent)
	Snapshot() model.Snapshot
	Finish(now time.Time)
}

// Saver persists snapshots.
type Saver interface {
	Save(ctx context.Context, snap model.Snapshot) error
}

// Archiver keeps session history. It is optional.
type Archiver interface {
	RecordSessions(ctx context.Context, sessions []model.Session) error
	RecordDays(ctx context.Context, days map[string]model.DayStats) error
}

// Runner captures key presses until its context ends or the source fails.
type Runner struct {
	Source       input.Source
	Engine       Engine
	Store        Saver
	Archive      Archiver
	Logger       *slog.Logger
	SaveInterval time.Duration
	Clock        func() time.Time
}

// errInputDone ends the group when the source stops without failing.
var errInputDone = errors.New("input done")

// Run blocks until capture stops, then closes the open session and persists
// a final snapshot. It returns the capture error, if any.
func (r *Runner) Run(ctx context.Context) error {
	if r.Logger == nil {
		r.Logger = logging.Discard()
	}
	if r.Clock == nil {
		r.Clock = time.Now
	}
	if r.SaveInterval <= 0 {
		r.SaveInterval = DefaultSaveInterval
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.capture(gctx)
	})
	g.Go(func() error {
		r.autosave(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := r.Source.Close(); err != nil {
			r.Logger.Warn("failed to close input", "err", err)
		}
		return nil
	})
	runErr := g.Wait()
	if errors.Is(runErr, errInputDone) {
		runErr = nil
	}

	r.Engine.Finish(r.Clock())
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()
	if err := r.persist(saveCtx); err != nil {
		r.Logger.Warn("final save failed, retrying", "err", err)
		if err := r.persist(saveCtx); err != nil {
			r.Logger.Error("final save failed", "err", err)
			return errors.Join(runErr, fmt.Errorf("final save: %w", err))
		}
	}
	r.Logger.Info("capture stopped")
	return runErr
}

func (r *Runner) capture(ctx context.Context) error {
	for {
		ev, err := r.Source.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if input.IsEndOfInput(err) {
				r.Logger.Info("input exhausted")
				return errInputDone
			}
			if input.IsClosed(err) {
				r.Logger.Info("input closed")
				return errInputDone
			}
			r.Logger.Error("capture failed", "err", err)
			return fmt.Errorf("capture: %w", err)
		}
		r.Engine.Record(ev)
	}
}

func (r *Runner) autosave(ctx context.Context) {
	ticker := time.NewTicker(r.SaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.persist(ctx); err != nil {
				r.Logger.Warn("autosave failed", "err", err)
			}
		}
	}
}

// persist writes the snapshot to the store. Archive failures are only logged.
func (r *Runner) persist(ctx context.Context) error {
	snap := r.Engine.Snapshot()
	if err := r.Store.Save(ctx, snap); err != nil {
		return err
	}
	r.Logger.Debug("saved", "keystrokes", snap.Total, "sessions", len(snap.Sessions))
	if r.Archive == nil {
		return nil
	}
	if err := r.Archive.RecordSessions(ctx, snap.Sessions); err != nil {
		r.Logger.Warn("failed to archive sessions", "err", err)
	}
	if err := r.Archive.RecordDays(ctx, snap.Days); err != nil {
		r.Logger.Warn("failed to archive days", "err", err)
	}
	return nil
}
