// Package config provides XDG path helpers and config file parsing.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const appName = "ctrlq"

// DataFileName is the JSON state file name.
const DataFileName = "keystroke_data.json"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultDataPath returns the default path for the JSON state file.
func DefaultDataPath() string {
	return filepath.Join(XDGDataHome(), appName, DataFileName)
}

// DefaultArchivePath returns the default path for the SQLite history archive.
func DefaultArchivePath() string {
	return filepath.Join(XDGDataHome(), appName, "history.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultLogPath returns where logs go while the dashboard owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appName, appName+".log")
}

// FallbackDataPath is the working-directory state file used when the
// preferred location cannot be used.
func FallbackDataPath() string {
	return filepath.Join(".", DataFileName)
}

// IsFallbackDataPath reports whether path names the fallback state file.
func IsFallbackDataPath(path string) bool {
	a, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	b, err := filepath.Abs(FallbackDataPath())
	if err != nil {
		return false
	}
	return a == b
}

// ResolveDataPath picks the state file used by capture and by every reader.
// preferred wins when its directory is writable and the file is either
// missing or a readable regular file; otherwise the working-directory copy
// is used. An empty preferred selects the fallback directly.
func ResolveDataPath(preferred string) (string, error) {
	if preferred != "" && dirWritable(filepath.Dir(preferred)) && fileUsable(preferred) {
		return preferred, nil
	}
	if dirWritable(".") {
		return FallbackDataPath(), nil
	}
	return "", errors.New("no writable location for " + DataFileName)
}

// LocateDataPath returns the state file readers should open: the one
// ResolveDataPath would hand to a capture, or preferred when nothing is writable.
func LocateDataPath(preferred string) string {
	path, err := ResolveDataPath(preferred)
	if err != nil {
		return preferred
	}
	return path
}

func fileUsable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".ctrlq-write-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
