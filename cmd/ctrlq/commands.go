package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/ctrlq/internal/app"
	"github.com/verte-zerg/ctrlq/internal/config"
	"github.com/verte-zerg/ctrlq/internal/generator"
	"github.com/verte-zerg/ctrlq/internal/input"
	"github.com/verte-zerg/ctrlq/internal/logging"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/stats"
	"github.com/verte-zerg/ctrlq/internal/statsui"
	"github.com/verte-zerg/ctrlq/internal/store"
	"github.com/verte-zerg/ctrlq/internal/tui"
	"github.com/verte-zerg/ctrlq/internal/wordlist"
)

const plainTopKeys = 20

var (
	statsSince string
	statsLast  int
	statsPlain bool

	exportFormat string

	resetForce bool
	resetAll   bool

	demoWPM      float64
	demoSeed     int64
	demoDuration time.Duration
	demoWordList string
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List detected keyboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printKeyboards(cmd.OutOrStdout())
		},
	}
}

func printKeyboards(w io.Writer) error {
	kbs, err := input.FindKeyboards()
	if err != nil {
		return fmt.Errorf("failed to detect keyboards: %w", err)
	}
	if len(kbs) == 0 {
		return input.ErrNoKeyboard
	}
	for _, kb := range kbs {
		if _, err := fmt.Fprintf(w, "%-20s %4d keys  %s\n", kb.Path, kb.Keys, kb.Name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse recorded history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the viewer")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	last := ""
	if statsLast != 0 {
		last = strconv.Itoa(statsLast)
	}
	filter, err := statsui.ParseFilter(statsSince, last)
	if err != nil {
		return err
	}

	statePath := config.LocateDataPath(expandHome(dataPath))
	fileStore := store.NewFileStore(statePath)
	var history stats.History
	if ar, err := openExistingArchive(expandHome(archivePath)); err != nil {
		logErrf("session archive unavailable: %v\n", err)
	} else if ar != nil {
		defer func() {
			if cerr := ar.Close(); cerr != nil {
				logErrf("failed to close archive: %v\n", cerr)
			}
		}()
		history = ar
	}

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return renderPlain(cmd.Context(), cmd.OutOrStdout(), fileStore, history, filter)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := statsui.Follow(ctx, statePath, statsui.DefaultDebounce)
	if err != nil {
		logErrf("live reload disabled: %v\n", err)
	}
	viewer := statsui.NewModel(fileStore, history, statsui.Options{Filter: filter, Changes: changes})
	program := tea.NewProgram(viewer, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func renderPlain(ctx context.Context, w io.Writer, fileStore *store.FileStore, history stats.History, filter model.HistoryFilter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := fileStore.Load(ctx)
	if err != nil {
		return err
	}
	snap := snapshotOf(st)
	report := stats.ReportFromState(st, filter)
	if history != nil {
		if report, err = stats.BuildReport(ctx, history, filter); err != nil {
			return err
		}
	}
	if err := stats.RenderSummary(w, snap); err != nil {
		return err
	}
	if err := stats.RenderKeyTable(w, stats.TopKeys(snap.Keys, plainTopKeys), snap.Total); err != nil {
		return err
	}
	if err := stats.RenderSessions(w, report.Sessions); err != nil {
		return err
	}
	return stats.RenderDays(w, report.Days)
}

func snapshotOf(st model.State) model.Snapshot {
	return model.Snapshot{
		Since:    st.Since,
		TakenAt:  time.Now(),
		Total:    st.Total,
		Keys:     st.Keys,
		Sessions: st.Sessions,
		Days:     st.Days,
	}
}

// openExistingArchive opens the archive only when it already exists.
func openExistingArchive(path string) (*store.Archive, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return store.OpenArchive(path)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the persisted statistics",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, yaml)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	fileStore := store.NewFileStore(config.LocateDataPath(expandHome(dataPath)))
	st, err := fileStore.Load(context.Background())
	if err != nil {
		return err
	}
	data, err := store.Encode(snapshotOf(st))
	if err != nil {
		return err
	}
	switch strings.ToLower(exportFormat) {
	case "json":
	case "yaml", "yml":
		if data, err = jsonToYAML(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown --format %q (use json or yaml)", exportFormat)
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("export: invalid JSON document")
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete recorded statistics",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetForce, "force", false, "confirm deletion")
	cmd.Flags().BoolVar(&resetAll, "all", false, "also clear the session archive")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	if !resetForce {
		return fmt.Errorf("refusing to delete statistics without --force")
	}
	statePath := config.LocateDataPath(expandHome(dataPath))
	lock, err := store.AcquireLock(statePath)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%w; press r in its dashboard to reset live statistics, or stop it first", err)
		}
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logErrf("failed to release lock: %v\n", rerr)
		}
	}()
	if err := store.NewFileStore(statePath).Reset(); err != nil {
		return err
	}
	logErrf("Removed %s\n", statePath)
	if !resetAll {
		return nil
	}
	ar, err := openExistingArchive(expandHome(archivePath))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if ar == nil {
		return nil
	}
	defer func() {
		if cerr := ar.Close(); cerr != nil {
			logErrf("failed to close archive: %v\n", cerr)
		}
	}()
	if err := ar.Reset(cmd.Context()); err != nil {
		return err
	}
	logErrf("Cleared %s\n", expandHome(archivePath))
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Show the dashboard fed by synthetic typing",
		Args:  cobra.NoArgs,
		RunE:  runDemoCmd,
	}
	cmd.Flags().Float64Var(&demoWPM, "wpm", generator.DefaultOptions().WPM, "simulated typing speed")
	cmd.Flags().Int64Var(&demoSeed, "seed", 0, "random seed (0: time based)")
	cmd.Flags().DurationVar(&demoDuration, "duration", 0, "stop after this long (default: until quit, or 10s without a terminal)")
	cmd.Flags().StringVar(&demoWordList, "words", "", "word list file, one word per line (default: built-in)")
	return cmd
}

// nopSaver keeps demo runs from touching the real statistics.
type nopSaver struct{}

func (nopSaver) Save(context.Context, model.Snapshot) error { return nil }

func runDemoCmd(cmd *cobra.Command, _ []string) error {
	if demoWPM <= 0 {
		return fmt.Errorf("--wpm must be > 0")
	}
	words := wordlist.Default()
	if demoWordList != "" {
		loaded, err := wordlist.LoadWords(demoWordList)
		if err != nil {
			return fmt.Errorf("failed to load word list: %w", err)
		}
		words = loaded
	}
	opts := generator.DefaultOptions()
	opts.WPM = demoWPM
	gen := generator.New(demoSeed, words, opts)

	engine := stats.NewEngine(stats.Options{}, model.State{})
	runner := &app.Runner{
		Source: input.NewPaced(gen.Next),
		Engine: engine,
		Store:  nopSaver{},
		Logger: logging.Discard(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	headless := !term.IsTerminal(int(os.Stdout.Fd()))
	duration := demoDuration
	if headless && duration == 0 {
		duration = 10 * time.Second
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := runSession(ctx, runner, engine, tui.Options{Device: "demo"}, headless); err != nil {
		return err
	}
	if !headless {
		return nil
	}
	snap := engine.Snapshot()
	w := cmd.OutOrStdout()
	if err := stats.RenderSummary(w, snap); err != nil {
		return err
	}
	return stats.RenderKeyTable(w, stats.TopKeys(snap.Keys, 10), snap.Total)
}
