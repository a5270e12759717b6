// Package tui provides the live Bubble Tea dashboard.
package tui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/stats"
)

const (
	tabOverview = iota
	tabTopKeys
	tabHeatmap
	tabSessions
)

const (
	// DefaultRefresh is how often the dashboard polls for a new snapshot.
	DefaultRefresh = 250 * time.Millisecond
	// DefaultTopKeys is the row count of the Top Keys table.
	DefaultTopKeys = 20

	recentDays = 7
)

// Snapshotter is the read side of the aggregation engine.
type Snapshotter interface {
	Snapshot() model.Snapshot
}

// Resetter discards live statistics. Sources that implement it enable the r key.
type Resetter interface {
	Reset(now time.Time)
}

// Options configures the dashboard.
type Options struct {
	Refresh time.Duration
	TopKeys int
	Device  string
}

type tickMsg time.Time

// CaptureStoppedMsg tells the dashboard that capture ended. Err is nil on a clean stop.
type CaptureStoppedMsg struct {
	Err error
}

// Model implements the live dashboard.
type Model struct {
	src  Snapshotter
	opts Options
	snap model.Snapshot

	tabs         []string
	activeTab    int
	keyTable     table.Model
	sessionTable table.Model

	width  int
	height int

	clock   func() time.Time
	resetAt time.Time
	stopped bool
	err     error
}

// NewModel constructs a dashboard polling src.
func NewModel(src Snapshotter, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.TopKeys <= 0 {
		opts.TopKeys = DefaultTopKeys
	}
	m := &Model{
		src:   src,
		opts:  opts,
		clock: time.Now,
		tabs:  []string{"Overview", "Top Keys", "Heatmap", "Sessions"},
		keyTable: newTable([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Key", Width: 12},
			{Title: "Count", Width: 10},
			{Title: "Share", Width: 7},
			{Title: "Last pressed", Width: 16},
		}),
		sessionTable: newTable([]table.Column{
			{Title: "Start", Width: 16},
			{Title: "Duration", Width: 9},
			{Title: "Keys", Width: 9},
			{Title: "WPM", Width: 6},
			{Title: "State", Width: 6},
		}),
	}
	m.refresh()
	return m
}

func newTable(cols []table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithHeight(10))
	t.SetStyles(TableStyles())
	return t
}

// Err returns the capture error delivered by CaptureStoppedMsg.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tickMsg:
		if m.stopped {
			return m, nil
		}
		m.refresh()
		return m, m.tick()
	case CaptureStoppedMsg:
		m.stopped = true
		m.err = msg.Err
		m.refresh()
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "right", "l":
			m.moveTab(1)
			return m, nil
		case "shift+tab", "left", "h":
			m.moveTab(-1)
			return m, nil
		case "r":
			m.reset()
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabTopKeys:
			m.keyTable, cmd = m.keyTable.Update(msg)
		case tabSessions:
			m.sessionTable, cmd = m.sessionTable.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) moveTab(delta int) {
	m.activeTab = MoveTab(m.activeTab, delta, len(m.tabs))
	m.keyTable.Blur()
	m.sessionTable.Blur()
	switch m.activeTab {
	case tabTopKeys:
		m.keyTable.Focus()
	case tabSessions:
		m.sessionTable.Focus()
	}
}

func (m *Model) reset() {
	r, ok := m.src.(Resetter)
	if !ok || m.stopped {
		return
	}
	m.resetAt = m.clock()
	r.Reset(m.resetAt)
	m.refresh()
}

func (m *Model) refresh() {
	m.snap = m.src.Snapshot()
	m.keyTable.SetRows(m.keyRows())
	m.sessionTable.SetRows(m.sessionRows())
}

func (m *Model) now() time.Time {
	if m.snap.TakenAt.IsZero() {
		return time.Now()
	}
	return m.snap.TakenAt
}

func (m *Model) keyRows() []table.Row {
	top := stats.TopKeys(m.snap.Keys, m.opts.TopKeys)
	rows := make([]table.Row, 0, len(top))
	now := m.now()
	for i, kc := range top {
		last := "never"
		if !kc.LastPressed.IsZero() {
			last = humanize.RelTime(kc.LastPressed, now, "ago", "from now")
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			layout.Name(kc.Code),
			humanize.Comma(int64(kc.Count)),
			fmt.Sprintf("%.1f%%", stats.Share(kc.Count, m.snap.Total)),
			last,
		})
	}
	return rows
}

func (m *Model) sessionRows() []table.Row {
	rows := make([]table.Row, 0, len(m.snap.Sessions))
	for i := len(m.snap.Sessions) - 1; i >= 0; i-- {
		s := m.snap.Sessions[i]
		state := "done"
		if s.Open {
			state = "live"
		}
		rows = append(rows, table.Row{
			s.Start.Local().Format("2006-01-02 15:04"),
			stats.FormatDuration(s.Duration()),
			humanize.Comma(int64(s.Keystrokes)),
			fmt.Sprintf("%.1f", s.WPM()),
			state,
		})
	}
	return rows
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = TabsHeight() + 1
	footerHeight = 1
	if m.err != nil {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.keyTable.SetWidth(m.width)
	m.keyTable.SetHeight(max(1, bodyHeight-1))
	m.sessionTable.SetWidth(m.width)
	m.sessionTable.SetHeight(max(3, bodyHeight-recentDays-4))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := FitLines(m.renderHeader(), m.width, headerHeight)
	body := FitLines(m.renderBody(), m.width, bodyHeight)
	footer := FitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderHeader() string {
	tabs := PadLines(RenderTabs(m.tabs, m.activeTab), m.width)
	status := fmt.Sprintf("Updated %s", m.now().Local().Format("15:04:05"))
	if m.opts.Device != "" {
		status = fmt.Sprintf("Device: %s  %s", m.opts.Device, status)
	}
	if !m.resetAt.IsZero() {
		status += fmt.Sprintf("  Reset at %s", m.resetAt.Local().Format("15:04:05"))
	}
	if m.stopped {
		status += "  [capture stopped]"
	}
	return tabs + "\n" + HeaderStyle.Render(TruncateLine(status, m.width))
}

func (m *Model) renderFooter() string {
	keys := "Nav: tab/shift+tab or left/right  Scroll: up/down  Quit: q"
	if _, ok := m.src.(Resetter); ok {
		keys = "Nav: tab/shift+tab or left/right  Scroll: up/down  Reset: r  Quit: q"
	}
	help := HeaderStyle.Render(keys)
	if m.err != nil {
		return help + "\n" + ErrorStyle.Render("capture stopped: "+m.err.Error())
	}
	return help
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabTopKeys:
		if len(m.snap.Keys) == 0 {
			return "No keystrokes recorded yet."
		}
		return MutedStyle.Render(m.keyTable.View())
	case tabHeatmap:
		return renderHeatmap(m.snap.Keys)
	case tabSessions:
		return m.renderSessions()
	default:
		return m.renderOverview()
	}
}

func (m *Model) renderOverview() string {
	now := m.now()
	session := "idle"
	if s, ok := m.snap.OpenSession(); ok {
		session = stats.FormatDuration(s.Duration())
	}
	today := m.snap.Days[model.DayKey(now)]
	cards := []string{
		MetricCard("Total keystrokes", humanize.Comma(int64(m.snap.Total))),
		MetricCard("WPM", fmt.Sprintf("%.1f", m.snap.WPM)),
		MetricCard("Unique keys", fmt.Sprintf("%d", len(m.snap.Keys))),
		MetricCard("Session", session),
		MetricCard("Today", humanize.Comma(int64(today.Keystrokes))),
		MetricCard("Sessions", fmt.Sprintf("%d", len(m.snap.Sessions))),
	}
	lines := []string{CardGrid(cards, m.width, 3), ""}
	if !m.snap.Since.IsZero() {
		lines = append(lines, HeaderStyle.Render("Tracking since "+humanize.RelTime(m.snap.Since, now, "ago", "from now")))
	}
	if m.snap.Repeats > 0 {
		lines = append(lines, HeaderStyle.Render(fmt.Sprintf("Auto-repeats this run: %s of %s", humanize.Comma(int64(m.snap.Repeats)), humanize.Comma(int64(m.snap.Total)))))
	}
	peak := "-"
	if h := today.MostActiveHour(); h >= 0 {
		peak = fmt.Sprintf("%02d:00", h)
	}
	lines = append(lines,
		fmt.Sprintf("Today by hour (peak %s)", peak),
		"|"+stats.Sparkline(stats.HourValues(today.Hours))+"|",
		HeaderStyle.Render(" 00    06    12    18   23"),
	)
	return strings.Join(lines, "\n")
}

func (m *Model) renderSessions() string {
	if len(m.snap.Sessions) == 0 {
		return "No sessions yet."
	}
	days := stats.SortedDays(m.snap.Days)
	if len(days) > recentDays {
		days = days[len(days)-recentDays:]
	}
	var buf bytes.Buffer
	if err := stats.RenderDays(&buf, days); err != nil {
		return fmt.Sprintf("Failed to render days: %v", err)
	}
	return MutedStyle.Render(m.sessionTable.View()) + "\n\n" + strings.TrimRight(buf.String(), "\n")
}
