// Package store persists keystroke statistics.
//
// The JSON state file is the source of truth and is merged back into the
// engine at startup. The SQLite archive keeps browsable session history.
package store

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
)

// FormatVersion is the state file version written by Save.
const FormatVersion = 1

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func stateSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("keystroke_data.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

type fileDoc struct {
	Version         int          `json:"version"`
	SavedAt         time.Time    `json:"saved_at"`
	StartedAt       time.Time    `json:"started_at"`
	TotalKeystrokes uint64       `json:"total_keystrokes"`
	Keys            []keyDoc     `json:"keys"`
	Sessions        []sessionDoc `json:"sessions"`
	Days            []dayDoc     `json:"days"`
}

type keyDoc struct {
	KeyID       uint16    `json:"key_id"`
	Name        string    `json:"name,omitempty"`
	Count       uint64    `json:"count"`
	LastPressed time.Time `json:"last_pressed"`
}

type sessionDoc struct {
	ID         string    `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Keystrokes uint64    `json:"keystrokes"`
	WPM        float64   `json:"wpm"`
}

type dayDoc struct {
	Date            string            `json:"date"`
	Keystrokes      uint64            `json:"keystrokes"`
	Sessions        uint64            `json:"sessions"`
	Hours           []uint64          `json:"hours"`
	KeyDistribution map[uint16]uint64 `json:"key_distribution,omitempty"`
}

// FileStore reads and writes the JSON state file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted baseline. A missing file yields an empty state.
func (s *FileStore) Load(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyState(), nil
		}
		return model.State{}, &Error{Kind: Unreadable, Op: "load", Path: s.path, Err: err}
	}
	doc, err := decodeDoc(data)
	if err != nil {
		return model.State{}, &Error{Kind: Corrupt, Op: "load", Path: s.path, Err: err}
	}
	return doc.state(), nil
}

// Decode parses a state document without touching the filesystem.
func Decode(data []byte) (model.State, error) {
	doc, err := decodeDoc(data)
	if err != nil {
		return model.State{}, &Error{Kind: Corrupt, Op: "decode", Err: err}
	}
	return doc.state(), nil
}

func decodeDoc(data []byte) (fileDoc, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fileDoc{}, fmt.Errorf("failed to parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fileDoc{}, fmt.Errorf("unexpected data after json document")
	}
	sch, err := stateSchema()
	if err != nil {
		return fileDoc{}, fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(raw); err != nil {
		return fileDoc{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("failed to decode state: %w", err)
	}
	if doc.Version > FormatVersion {
		return fileDoc{}, fmt.Errorf("unsupported version %d", doc.Version)
	}
	return doc, nil
}

func (d fileDoc) state() model.State {
	st := emptyState()
	st.Since = d.StartedAt
	st.Total = d.TotalKeystrokes
	for _, k := range d.Keys {
		cur := st.Keys[k.KeyID]
		cur.Count += k.Count
		if k.LastPressed.After(cur.LastPressed) {
			cur.LastPressed = k.LastPressed
		}
		st.Keys[k.KeyID] = cur
	}
	for _, sd := range d.Sessions {
		st.Sessions = append(st.Sessions, model.Session{
			ID:         sd.ID,
			Start:      sd.Start,
			End:        sd.End,
			Keystrokes: sd.Keystrokes,
		})
	}
	for _, dd := range d.Days {
		day := model.DayStats{Keystrokes: dd.Keystrokes, Sessions: dd.Sessions, Keys: dd.KeyDistribution}
		copy(day.Hours[:], dd.Hours)
		cur := st.Days[dd.Date]
		cur.Add(day)
		st.Days[dd.Date] = cur
	}
	return st
}

func emptyState() model.State {
	return model.State{
		Keys: map[uint16]model.KeyStat{},
		Days: map[string]model.DayStats{},
	}
}

// Encode renders a snapshot as an indented state document.
func Encode(snap model.Snapshot) ([]byte, error) {
	doc := fileDoc{
		Version:         FormatVersion,
		SavedAt:         snap.TakenAt,
		StartedAt:       snap.Since,
		TotalKeystrokes: snap.Total,
		Keys:            make([]keyDoc, 0, len(snap.Keys)),
		Sessions:        make([]sessionDoc, 0, len(snap.Sessions)),
		Days:            make([]dayDoc, 0, len(snap.Days)),
	}
	for code, st := range snap.Keys {
		doc.Keys = append(doc.Keys, keyDoc{
			KeyID:       code,
			Name:        layout.Name(code),
			Count:       st.Count,
			LastPressed: st.LastPressed,
		})
	}
	sort.Slice(doc.Keys, func(i, j int) bool {
		return doc.Keys[i].KeyID < doc.Keys[j].KeyID
	})
	for _, s := range snap.Sessions {
		doc.Sessions = append(doc.Sessions, sessionDoc{
			ID:         s.ID,
			Start:      s.Start,
			End:        s.End,
			Keystrokes: s.Keystrokes,
			WPM:        s.WPM(),
		})
	}
	sort.SliceStable(doc.Sessions, func(i, j int) bool {
		return doc.Sessions[i].Start.Before(doc.Sessions[j].Start)
	})
	for date, st := range snap.Days {
		doc.Days = append(doc.Days, dayDoc{
			Date:            date,
			Keystrokes:      st.Keystrokes,
			Sessions:        st.Sessions,
			Hours:           append([]uint64(nil), st.Hours[:]...),
			KeyDistribution: st.Keys,
		})
	}
	sort.Slice(doc.Days, func(i, j int) bool {
		return doc.Days[i].Date < doc.Days[j].Date
	})
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// Save atomically replaces the state file with snap.
func (s *FileStore) Save(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return &Error{Kind: Unwritable, Op: "save", Path: s.path, Err: err}
	}
	if err := writeAtomic(s.path, data); err != nil {
		return &Error{Kind: Unwritable, Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Reset removes the state file. A missing file is not an error.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
