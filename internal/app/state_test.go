package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ctrlq/internal/logging"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/store"
)

func TestOpenStateFallsBackFromUnreadableFile(t *testing.T) {
	preferred := filepath.Join(t.TempDir(), "keystroke_data.json")
	require.NoError(t, os.Mkdir(preferred, 0o755))
	t.Chdir(t.TempDir())
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.NewFileStore("keystroke_data.json").Save(context.Background(), model.Snapshot{
		Since: base,
		Total: 12,
		Keys:  map[uint16]model.KeyStat{30: {Count: 12, LastPressed: base}},
	}))

	sf, err := OpenState(context.Background(), preferred, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sf.Close() })
	assert.Equal(t, filepath.Join(".", "keystroke_data.json"), sf.Path())
	assert.Equal(t, uint64(12), sf.Baseline.Total)
}

func TestOpenStateCorruptStartsEmpty(t *testing.T) {
	preferred := filepath.Join(t.TempDir(), "keystroke_data.json")
	require.NoError(t, os.WriteFile(preferred, []byte("{"), 0o600))
	sf, err := OpenState(context.Background(), preferred, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sf.Close() })
	assert.Equal(t, preferred, sf.Path())
	assert.Zero(t, sf.Baseline.Total)
}
