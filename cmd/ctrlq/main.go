// Package main provides the CLI entrypoint for ctrlq.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ctrlq/internal/app"
	"github.com/verte-zerg/ctrlq/internal/config"
	"github.com/verte-zerg/ctrlq/internal/input"
	"github.com/verte-zerg/ctrlq/internal/logging"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/session"
	"github.com/verte-zerg/ctrlq/internal/stats"
	"github.com/verte-zerg/ctrlq/internal/store"
	"github.com/verte-zerg/ctrlq/internal/tui"
)

var (
	configPath  string
	dataPath    string
	archivePath string
	logLevel    string
	logFormat   string
	logFile     string

	captureDevice       string
	captureNoUI         bool
	captureIdle         string
	captureWindow       string
	captureSaveInterval string
	captureRefresh      string
	captureRepeat       string
	captureTopKeys      int
	captureListDevices  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ctrlq",
		Short:         "Keyboard activity statistics from Linux input events",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runCaptureCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultConfigPath(), "config file (.toml, .yaml)")
	pf.StringVar(&dataPath, "data", config.DefaultDataPath(), "state file path")
	pf.StringVar(&archivePath, "archive", config.DefaultArchivePath(), "session history database path")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&logFile, "log-file", config.DefaultLogPath(), "log file used while the dashboard is shown")

	f := rootCmd.Flags()
	f.StringVarP(&captureDevice, "device", "d", "", "input device, e.g. /dev/input/event3 (default: auto-detect)")
	f.BoolVar(&captureNoUI, "no-ui", false, "capture without the dashboard")
	f.StringVar(&captureIdle, "idle", session.DefaultIdleThreshold.String(), "inactivity gap that ends a session")
	f.StringVar(&captureWindow, "window", stats.DefaultSpeedWindow.String(), "rolling window for live WPM")
	f.StringVar(&captureSaveInterval, "save-interval", app.DefaultSaveInterval.String(), "autosave interval")
	f.StringVar(&captureRefresh, "refresh", tui.DefaultRefresh.String(), "dashboard refresh interval")
	f.StringVar(&captureRepeat, "repeat", model.RepeatCount.String(), "auto-repeat policy (count, ignore)")
	f.IntVar(&captureTopKeys, "top-keys", tui.DefaultTopKeys, "rows in the Top Keys tab")
	f.BoolVarP(&captureListDevices, "list-devices", "l", false, "list detected keyboards and exit")

	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDemoCmd())

	return rootCmd
}

type settings struct {
	model.Config
	LogFile string
	TopKeys int
}

// loadSettings merges the config file and CTRLQ_* variables under the command-line flags.
func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg.ApplyEnvOverrides()

	applyStringConfig(cmd, "device", &captureDevice, fileCfg.Capture.Device)
	applyStringConfig(cmd, "repeat", &captureRepeat, fileCfg.Capture.Repeat)
	applyStringConfig(cmd, "idle", &captureIdle, fileCfg.Capture.Idle)
	applyStringConfig(cmd, "window", &captureWindow, fileCfg.Capture.Window)
	applyBoolConfig(cmd, "no-ui", &captureNoUI, fileCfg.Display.NoUI)
	applyStringConfig(cmd, "refresh", &captureRefresh, fileCfg.Display.Refresh)
	applyIntConfig(cmd, "top-keys", &captureTopKeys, fileCfg.Display.TopKeys)
	applyStringConfig(cmd, "data", &dataPath, fileCfg.Storage.Data)
	applyStringConfig(cmd, "archive", &archivePath, fileCfg.Storage.Archive)
	applyStringConfig(cmd, "save-interval", &captureSaveInterval, fileCfg.Storage.SaveInterval)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	s := settings{
		Config: model.Config{
			Device:      captureDevice,
			DataPath:    expandHome(dataPath),
			ArchivePath: expandHome(archivePath),
			NoUI:        captureNoUI,
			LogLevel:    logLevel,
			LogFormat:   logFormat,
		},
		LogFile: expandHome(logFile),
		TopKeys: captureTopKeys,
	}
	durations := []struct {
		flag   string
		value  string
		target *time.Duration
	}{
		{"idle", captureIdle, &s.IdleThreshold},
		{"window", captureWindow, &s.SpeedWindow},
		{"save-interval", captureSaveInterval, &s.SaveInterval},
		{"refresh", captureRefresh, &s.RefreshInterval},
	}
	for _, d := range durations {
		parsed, err := config.ParseDuration(d.value)
		if err != nil {
			return settings{}, fmt.Errorf("--%s: %w", d.flag, err)
		}
		*d.target = parsed
	}
	if s.Repeat, err = model.ParseRepeatPolicy(captureRepeat); err != nil {
		return settings{}, fmt.Errorf("--repeat: %w", err)
	}
	if s.TopKeys <= 0 {
		return settings{}, fmt.Errorf("--top-keys must be > 0")
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return settings{}, fmt.Errorf("--log-level: %w", err)
	}
	return s, nil
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	if captureListDevices {
		return printKeyboards(cmd.OutOrStdout())
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	headless := s.NoUI || !term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := newLogger(s, headless)
	if err != nil {
		return err
	}
	defer closeLog()

	devicePath := s.Device
	if devicePath == "" {
		kbs, err := input.FindKeyboards()
		if err != nil {
			return fmt.Errorf("failed to detect keyboards: %w", err)
		}
		kb, err := input.Choose(kbs)
		if err != nil {
			return err
		}
		devicePath = kb.Path
		logger.Info("auto-detected keyboard", "path", kb.Path, "name", kb.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := app.OpenState(ctx, s.DataPath, logger)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%w; only one capture can write the statistics at a time", err)
		}
		return err
	}
	defer func() {
		if cerr := state.Close(); cerr != nil {
			logger.Warn("failed to release state lock", "err", cerr)
		}
	}()

	dev, err := input.Open(devicePath, s.Repeat)
	if err != nil {
		return deviceFailure(err)
	}
	logger.Info("capturing", "device", dev.Path(), "name", dev.Name(), "data", state.Path(), "repeat", s.Repeat.String())

	engine := stats.NewEngine(stats.Options{
		SpeedWindow:   s.SpeedWindow,
		IdleThreshold: s.IdleThreshold,
	}, state.Baseline)
	runner := &app.Runner{
		Source:       dev,
		Engine:       engine,
		Store:        state.Store,
		Logger:       logger,
		SaveInterval: s.SaveInterval,
	}
	if ar, err := store.OpenArchive(s.ArchivePath); err != nil {
		logger.Warn("session archive disabled", "path", s.ArchivePath, "err", err)
	} else {
		defer func() {
			if cerr := ar.Close(); cerr != nil {
				logger.Warn("failed to close archive", "err", cerr)
			}
		}()
		runner.Archive = ar
	}

	label := dev.Name()
	if label == "" {
		label = dev.Path()
	}
	opts := tui.Options{Refresh: s.RefreshInterval, TopKeys: s.TopKeys, Device: label}
	if err := runSession(ctx, runner, engine, opts, headless); err != nil {
		return deviceFailure(err)
	}
	return nil
}

// runSession runs capture with or without the dashboard. Quitting the
// dashboard cancels capture; a capture failure closes the dashboard.
func runSession(ctx context.Context, runner *app.Runner, src tui.Snapshotter, opts tui.Options, headless bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if headless {
		return runner.Run(ctx)
	}

	program := tea.NewProgram(tui.NewModel(src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	runErr := make(chan error, 1)
	go func() {
		err := runner.Run(ctx)
		program.Send(tui.CaptureStoppedMsg{Err: err})
		runErr <- err
	}()
	_, uiErr := program.Run()
	cancel()
	err := <-runErr
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return errors.Join(err, fmt.Errorf("failed to run dashboard: %w", uiErr))
	}
	return err
}

func deviceFailure(err error) error {
	if input.IsPermission(err) {
		return fmt.Errorf("%w\nhint: %s", err, input.PermissionHint)
	}
	if input.IsDisconnected(err) {
		return fmt.Errorf("%w\nhint: the keyboard was disconnected; run `ctrlq devices` to find it again", err)
	}
	return err
}

// newLogger logs to stderr when headless and to a file while the dashboard owns the terminal.
func newLogger(s settings, headless bool) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if !headless {
		f, err := logging.OpenFile(s.LogFile)
		if err != nil {
			logErrf("logging disabled: %v\n", err)
			return logging.Discard(), closeFn, nil
		}
		out = f
		closeFn = func() {
			_ = f.Close()
		}
	}
	logger, err := logging.New(logging.Options{Level: s.LogLevel, Format: s.LogFormat, Output: out})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return logger, closeFn, nil
}
