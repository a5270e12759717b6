package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ctrlq/internal/model"
)

func sampleSnapshot() model.Snapshot {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var hours [24]uint64
	hours[9] = 7
	return model.Snapshot{
		StartedAt: base.Add(time.Hour),
		Since:     base,
		TakenAt:   base.Add(2 * time.Hour),
		Total:     7,
		Keys: map[uint16]model.KeyStat{
			30: {Count: 4, LastPressed: base.Add(3 * time.Second)},
			57: {Count: 2, LastPressed: base.Add(2 * time.Second)},
			1:  {Count: 1, LastPressed: base.Add(time.Second)},
		},
		WPM: 12.5,
		Sessions: []model.Session{
			{ID: "b", Start: base.Add(time.Minute), End: base.Add(2 * time.Minute), Keystrokes: 3, Open: true},
			{ID: "a", Start: base, End: base.Add(30 * time.Second), Keystrokes: 4},
		},
		Days: map[string]model.DayStats{
			"2026-03-14": {Keystrokes: 7, Sessions: 2, Hours: hours, Keys: map[uint16]uint64{30: 4, 57: 2, 1: 1}},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystroke_data.json")
	fs := NewFileStore(path)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, fs.Save(ctx, snap))
	st, err := fs.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), st.Total)
	assert.True(t, st.Since.Equal(snap.Since))
	require.Len(t, st.Keys, 3)
	for code, want := range snap.Keys {
		got := st.Keys[code]
		assert.Equal(t, want.Count, got.Count, "key %d", code)
		assert.True(t, want.LastPressed.Equal(got.LastPressed), "key %d", code)
	}
	require.Len(t, st.Sessions, 2)
	assert.Equal(t, "a", st.Sessions[0].ID, "sessions ordered by start")
	assert.Equal(t, "b", st.Sessions[1].ID)
	for _, s := range st.Sessions {
		assert.False(t, s.Open, "loaded sessions are closed")
	}
	assert.Equal(t, snap.Days, st.Days)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope", "keystroke_data.json"))
	st, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Empty(t, st.Keys)
	assert.Empty(t, st.Sessions)
	assert.NotNil(t, st.Keys)
	assert.NotNil(t, st.Days)
}

func TestFileStoreCorrupt(t *testing.T) {
	cases := map[string]string{
		"truncated":        `{"total_keystrokes": 5, "keys": [`,
		"empty":            ``,
		"wrong type":       `{"total_keystrokes": "five"}`,
		"negative count":   `{"keys": [{"key_id": 30, "count": -1}]}`,
		"bad key id":       `{"keys": [{"key_id": 70000, "count": 1}]}`,
		"bad date":         `{"days": [{"date": "yesterday"}]}`,
		"bad timestamp":    `{"started_at": "not a time"}`,
		"future version":   `{"version": 99}`,
		"trailing data":    `{"version": 1} {}`,
		"not an object":    `[1, 2, 3]`,
		"too many hours":   `{"days": [{"date": "2026-01-01", "hours": [0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}]}`,
		"session no end":   `{"sessions": [{"start": "2026-01-01T00:00:00Z"}]}`,
		"fractional keys":  `{"keys": [{"key_id": 30, "count": 1.5}]}`,
		"named day key":    `{"days": [{"date": "2026-01-01", "key_distribution": {"KEY_A": 3}}]}`,
		"negative day key": `{"days": [{"date": "2026-01-01", "key_distribution": {"30": -3}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "keystroke_data.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := NewFileStore(path).Load(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
			assert.False(t, errors.Is(err, ErrUnreadable))

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, Corrupt, serr.Kind)
			assert.Equal(t, path, serr.Path)
		})
	}
}

func TestFileStoreMissingOptionalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystroke_data.json")
	body := `{"keys": [{"key_id": 30, "count": 3}, {"key_id": 30, "count": 2}], "days": [{"date": "2026-01-02", "hours": [1, 2]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	st, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.True(t, st.Since.IsZero())
	assert.Equal(t, uint64(5), st.Keys[30].Count)
	assert.True(t, st.Keys[30].LastPressed.IsZero())
	day := st.Days["2026-01-02"]
	assert.Equal(t, uint64(1), day.Hours[0])
	assert.Equal(t, uint64(2), day.Hours[1])
	assert.Zero(t, day.Hours[2])
}

func TestFileStoreUnreadable(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileStore(dir).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable), "got %v", err)
	assert.False(t, errors.Is(err, ErrCorrupt))
}

func TestFileStoreSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keystroke_data.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, sampleSnapshot()))
	snap := sampleSnapshot()
	snap.Total = 9
	require.NoError(t, fs.Save(ctx, snap))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "keystroke_data.json", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	st, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), st.Total)
}

func TestFileStoreSaveCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "keystroke_data.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), sampleSnapshot()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := NewFileStore(filepath.Join(blocker, "keystroke_data.json")).Save(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnwritable), "got %v", err)
}

func TestEncodeIsStable(t *testing.T) {
	first, err := Encode(sampleSnapshot())
	require.NoError(t, err)
	second, err := Encode(sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	text := string(first)
	assert.Less(t, strings.Index(text, `"key_id": 1,`), strings.Index(text, `"key_id": 30,`))
	assert.Contains(t, text, `"name": "A"`)
	assert.Contains(t, text, `"name": "SPACE"`)
	assert.Contains(t, text, `"key_distribution": {`)
	assert.Less(t, strings.Index(text, `"1": 1`), strings.Index(text, `"30": 4`))

	st, err := Decode(first)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), st.Total)
}

func TestFileStoreReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystroke_data.json")
	fs := NewFileStore(path)
	require.NoError(t, fs.Reset(), "missing file is fine")
	require.NoError(t, fs.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, fs.Reset())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
