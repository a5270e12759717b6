package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file. Nil fields are unset.
type FileConfig struct {
	Capture CaptureConfig `toml:"capture" yaml:"capture"`
	Display DisplayConfig `toml:"display" yaml:"display"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

// CaptureConfig maps capture-related settings.
type CaptureConfig struct {
	Device *string `toml:"device" yaml:"device"`
	Repeat *string `toml:"repeat" yaml:"repeat"`
	Idle   *string `toml:"idle" yaml:"idle"`
	Window *string `toml:"window" yaml:"window"`
}

// DisplayConfig maps dashboard settings.
type DisplayConfig struct {
	NoUI    *bool   `toml:"no-ui" yaml:"no-ui"`
	Refresh *string `toml:"refresh" yaml:"refresh"`
	TopKeys *int    `toml:"top-keys" yaml:"top-keys"`
}

// StorageConfig maps persistence settings.
type StorageConfig struct {
	Data         *string `toml:"data" yaml:"data"`
	Archive      *string `toml:"archive" yaml:"archive"`
	SaveInterval *string `toml:"save-interval" yaml:"save-interval"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level" yaml:"level"`
	Format *string `toml:"format" yaml:"format"`
	File   *string `toml:"file" yaml:"file"`
}

// LoadConfig reads a TOML or YAML config chosen by extension. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that durations parse and are positive.
func (c FileConfig) Validate() error {
	durations := map[string]*string{
		"capture.idle":          c.Capture.Idle,
		"capture.window":        c.Capture.Window,
		"display.refresh":       c.Display.Refresh,
		"storage.save-interval": c.Storage.SaveInterval,
	}
	for name, v := range durations {
		if v == nil {
			continue
		}
		if _, err := ParseDuration(*v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Display.TopKeys != nil && *c.Display.TopKeys <= 0 {
		return fmt.Errorf("display.top-keys must be positive")
	}
	return nil
}

// ParseDuration parses a positive Go duration string.
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// ApplyEnvOverrides lets CTRLQ_* variables replace file values.
func (c *FileConfig) ApplyEnvOverrides() {
	if v := os.Getenv("CTRLQ_DEVICE"); v != "" {
		c.Capture.Device = &v
	}
	if v := os.Getenv("CTRLQ_DATA"); v != "" {
		c.Storage.Data = &v
	}
	if v := os.Getenv("CTRLQ_LOG_LEVEL"); v != "" {
		c.Log.Level = &v
	}
}

// Template is written by `ctrlq config` when no file exists yet.
const Template = `# ctrlq configuration. Command-line flags take precedence.

[capture]
# device = "/dev/input/event3"
# repeat = "count"    # count or ignore hardware auto-repeat
# idle = "5m"         # inactivity gap that ends a session
# window = "60s"      # rolling window for live WPM

[display]
# no-ui = false
# refresh = "250ms"
# top-keys = 20

[storage]
# data = "~/.local/share/ctrlq/keystroke_data.json"
# archive = "~/.local/share/ctrlq/history.db"
# save-interval = "30s"

[log]
# level = "info"      # debug, info, warn, error
# format = "text"     # text or json
# file = "~/.local/state/ctrlq/ctrlq.log"
`
