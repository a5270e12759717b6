package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ctrlq/internal/input"
	"github.com/verte-zerg/ctrlq/internal/logging"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/stats"
	"github.com/verte-zerg/ctrlq/internal/store"
)

type memStore struct {
	mu       sync.Mutex
	saves    []model.Snapshot
	failures int
}

func (m *memStore) Save(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("disk full")
	}
	m.saves = append(m.saves, snap)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *memStore) last() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[len(m.saves)-1]
}

type failingSource struct {
	err error
}

func (f failingSource) Next() (model.KeyEvent, error) { return model.KeyEvent{}, f.err }
func (f failingSource) Close() error                  { return nil }

func events(base time.Time, codes ...uint16) []model.KeyEvent {
	out := make([]model.KeyEvent, len(codes))
	for i, c := range codes {
		out[i] = model.KeyEvent{Code: c, Time: base.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func TestRunnerReplaysAndSaves(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.Local)
	engine := stats.NewEngine(stats.Options{Clock: func() time.Time { return base }}, model.State{})
	st := &memStore{}
	r := &Runner{
		Source: input.NewReplay(events(base, 30, 30, 48, 30, 46)),
		Engine: engine,
		Store:  st,
		Clock:  func() time.Time { return base.Add(time.Minute) },
	}

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, 1, st.count())
	snap := st.last()
	assert.Equal(t, uint64(5), snap.Total)
	assert.Equal(t, uint64(3), snap.Keys[30].Count)
	require.Len(t, snap.Sessions, 1)
	assert.False(t, snap.Sessions[0].Open, "shutdown closes the session")
	assert.True(t, snap.Sessions[0].End.Equal(base.Add(time.Minute)))
}

func TestRunnerReturnsDeviceFailure(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{}
	devErr := &input.DeviceError{Op: "read", Path: "/dev/input/event3", Err: fs.ErrPermission}
	r := &Runner{Source: failingSource{err: devErr}, Engine: engine, Store: st}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, input.ErrDevice))
	assert.True(t, input.IsPermission(err))
	assert.Contains(t, err.Error(), "capture:")
	assert.Equal(t, 1, st.count(), "final save still happens")
}

func TestRunnerTreatsClosedSourceAsCleanStop(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{}
	closed := &input.DeviceError{Op: "read", Path: "/dev/input/event3", Err: fs.ErrClosed}
	r := &Runner{Source: failingSource{err: closed}, Engine: engine, Store: st}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, st.count())
}

func TestRunnerRetriesFinalSave(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{failures: 1}
	r := &Runner{Source: input.NewReplay(nil), Engine: engine, Store: st}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, st.count())
}

func TestRunnerFinalSaveGivesUp(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{failures: 2}
	r := &Runner{Source: input.NewReplay(nil), Engine: engine, Store: st}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final save")
}

func TestRunnerStopsOnCancelAndAutosaves(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{}
	src := input.NewPaced(func() input.Keystroke {
		return input.Keystroke{Code: 30, Delay: time.Millisecond}
	})
	r := &Runner{Source: src, Engine: engine, Store: st, SaveInterval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return st.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	final := st.last()
	assert.Greater(t, final.Total, uint64(0))
	_, open := final.OpenSession()
	assert.False(t, open)
}

type recordingArchive struct {
	mu       sync.Mutex
	sessions int
	fail     bool
}

func (a *recordingArchive) RecordSessions(_ context.Context, sessions []model.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("locked")
	}
	a.sessions += len(sessions)
	return nil
}

func (a *recordingArchive) RecordDays(context.Context, map[string]model.DayStats) error {
	return nil
}

func TestRunnerArchiveFailureIsNotFatal(t *testing.T) {
	engine := stats.NewEngine(stats.Options{}, model.State{})
	st := &memStore{}
	ar := &recordingArchive{fail: true}
	r := &Runner{Source: input.NewReplay(events(time.Now(), 30)), Engine: engine, Store: st, Archive: ar}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, st.count())
}

func TestRunnerWithFileStoreAndArchive(t *testing.T) {
	dir := t.TempDir()
	fileStore := store.NewFileStore(filepath.Join(dir, "keystroke_data.json"))
	ar, err := store.OpenArchive(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ar.Close() })

	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.Local)
	evs := append(events(base, 30, 31), events(base.Add(time.Hour), 32)...)
	r := &Runner{
		Source:  input.NewReplay(evs),
		Engine:  stats.NewEngine(stats.Options{}, model.State{}),
		Store:   fileStore,
		Archive: ar,
	}
	require.NoError(t, r.Run(context.Background()))

	st, err := LoadBaseline(context.Background(), fileStore, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.Total)
	assert.Len(t, st.Sessions, 2)

	archived, err := ar.ListSessions(context.Background(), model.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, archived, 2)
}

type stubLoader struct {
	st  model.State
	err error
}

func (s stubLoader) Load(context.Context) (model.State, error) { return s.st, s.err }

func TestLoadBaseline(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()

	st, err := LoadBaseline(ctx, stubLoader{st: model.State{Total: 4}}, logger)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), st.Total)

	corrupt := &store.Error{Kind: store.Corrupt, Op: "load", Path: "x", Err: fmt.Errorf("bad json")}
	st, err = LoadBaseline(ctx, stubLoader{err: corrupt}, logger)
	require.NoError(t, err)
	assert.Zero(t, st.Total)

	unreadable := &store.Error{Kind: store.Unreadable, Op: "load", Path: "x", Err: fs.ErrPermission}
	_, err = LoadBaseline(ctx, stubLoader{err: unreadable}, logger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrUnreadable))
}
