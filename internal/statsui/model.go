// Package statsui provides the Bubble Tea history viewer.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/stats"
	"github.com/verte-zerg/ctrlq/internal/tui"
)

const (
	tabSummary = iota
	tabSessions
	tabDays
)

const summaryTopKeys = 10

// StateLoader reads the persisted state file.
type StateLoader interface {
	Load(ctx context.Context) (model.State, error)
}

// Options configures the viewer.
type Options struct {
	Filter model.HistoryFilter
	// Changes, when set, triggers a reload each time it fires.
	Changes <-chan struct{}
	Clock   func() time.Time
}

type reloadMsg struct{}

// Model implements the history viewer.
type Model struct {
	state   StateLoader
	history stats.History
	filter  model.HistoryFilter
	changes <-chan struct{}
	clock   func() time.Time

	current model.State
	loaded  bool
	report  stats.Report
	errMsg  string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	sessionTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a viewer over the state file and, when history is non-nil, the archive.
func NewModel(state StateLoader, history stats.History, opts Options) *Model {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	m := &Model{
		state:   state,
		history: history,
		filter:  opts.Filter,
		changes: opts.Changes,
		clock:   opts.Clock,
		tabs:    []string{"Summary", "Sessions", "Days"},
	}
	m.filterInputs = []textinput.Model{
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.sessionTable = table.New(
		table.WithColumns([]table.Column{
			{Title: "Start", Width: 16},
			{Title: "End", Width: 16},
			{Title: "Duration", Width: 9},
			{Title: "Keys", Width: 9},
			{Title: "WPM", Width: 6},
		}),
		table.WithHeight(10),
	)
	m.sessionTable.SetStyles(tui.TableStyles())
	m.refreshReport()
	return m
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case reloadMsg:
		m.refreshReport()
		return m, m.waitForChange()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h", "shift+tab":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabSessions {
				m.sessionTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSessions {
				m.sessionTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabSessions {
			m.sessionTable, cmd = m.sessionTable.Update(msg)
			return m, cmd
		}
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) moveTab(delta int) {
	m.activeTab = tui.MoveTab(m.activeTab, delta, len(m.tabs))
	if m.activeTab == tabSessions {
		m.sessionTable.Focus()
	} else {
		m.sessionTable.Blur()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := tui.FitLines(m.renderHeader(), m.width, headerHeight)
	body := tui.FitLines(m.renderBody(), m.width, bodyHeight)
	footer := tui.FitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = tui.TabsHeight() + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
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
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.sessionTable.SetWidth(m.width)
	m.sessionTable.SetHeight(max(1, bodyHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) renderHeader() string {
	tabs := tui.PadLines(tui.RenderTabs(m.tabs, m.activeTab), m.width)
	summary := describeFilter(m.filter)
	if m.history == nil {
		summary += "  (state file only)"
	}
	return tabs + "\n" + tui.HeaderStyle.Render(tui.TruncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return tui.HeaderStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := tui.HeaderStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + tui.ErrorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.filterMode {
		return m.renderFilterForm()
	}
	if m.activeTab == tabSessions {
		if len(m.report.Sessions) == 0 {
			return "No sessions found."
		}
		return tui.MutedStyle.Render(m.sessionTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, tui.ErrorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) refreshReport() {
	ctx := context.Background()
	st, err := m.state.Load(ctx)
	if err != nil {
		m.errMsg = err.Error()
		m.renderTabContents()
		return
	}
	m.current = st
	m.loaded = true
	report := stats.ReportFromState(st, m.filter)
	if m.history != nil {
		report, err = stats.BuildReport(ctx, m.history, m.filter)
		if err != nil {
			m.errMsg = err.Error()
			m.renderTabContents()
			return
		}
	}
	m.errMsg = ""
	m.report = report
	m.sessionTable.SetRows(sessionRows(report.Sessions))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" && !m.loaded {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabSummary].SetContent(m.renderSummary(width))
	m.viewports[tabDays].SetContent(renderDays(m.report.Days))
}

func (m *Model) renderSummary(width int) string {
	best := 0.0
	for _, s := range m.report.Sessions {
		if s.Duration() >= time.Second {
			best = max(best, s.WPM())
		}
	}
	cards := []string{
		tui.MetricCard("Sessions", fmt.Sprintf("%d", len(m.report.Sessions))),
		tui.MetricCard("Keystrokes", humanize.Comma(int64(m.report.Total))),
		tui.MetricCard("Avg WPM", fmt.Sprintf("%.1f", m.report.AvgWPM)),
		tui.MetricCard("Best WPM", fmt.Sprintf("%.1f", best)),
	}
	snap := model.Snapshot{
		Since:    m.current.Since,
		TakenAt:  m.clock(),
		Total:    m.current.Total,
		Keys:     m.current.Keys,
		Sessions: m.current.Sessions,
		Days:     m.current.Days,
	}
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, snap); err != nil {
		return fmt.Sprintf("Failed to render summary: %v", err)
	}
	if err := stats.RenderKeyTable(&buf, stats.TopKeys(snap.Keys, summaryTopKeys), snap.Total); err != nil {
		return fmt.Sprintf("Failed to render keys: %v", err)
	}
	if cold := stats.ColdKeys(snap.Keys, 5); len(cold) > 0 && snap.Total > 0 {
		names := make([]string, len(cold))
		for i, kc := range cold {
			names[i] = fmt.Sprintf("%s (%d)", layout.Name(kc.Code), kc.Count)
		}
		buf.WriteString("Least used: " + strings.Join(names, ", ") + "\n")
	}
	return strings.TrimRight(tui.CardGrid(cards, width, 4)+"\n\n"+buf.String(), "\n")
}

func renderDays(days []model.DayAggregate) string {
	if len(days) == 0 {
		return "No daily stats found."
	}
	newestFirst := make([]model.DayAggregate, len(days))
	for i, d := range days {
		newestFirst[len(days)-1-i] = d
	}
	var buf bytes.Buffer
	if err := stats.RenderDays(&buf, newestFirst); err != nil {
		return fmt.Sprintf("Failed to render days: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sessionRows(sessions []model.Session) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, table.Row{
			s.Start.Local().Format("2006-01-02 15:04"),
			s.End.Local().Format("2006-01-02 15:04"),
			stats.FormatDuration(s.Duration()),
			humanize.Comma(int64(s.Keystrokes)),
			fmt.Sprintf("%.1f", s.WPM()),
		})
	}
	return rows
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) setInputsFromFilter() {
	if m.filter.Since != nil {
		m.filterInputs[0].SetValue(m.filter.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[0].SetValue("")
	}
	if m.filter.Last > 0 {
		m.filterInputs[1].SetValue(fmt.Sprintf("%d", m.filter.Last))
	} else {
		m.filterInputs[1].SetValue("")
	}
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		filter, err := ParseFilter(m.filterInputs[0].Value(), m.filterInputs[1].Value())
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filter = filter
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	m.filterIndex = tui.MoveTab(0, idx, len(m.filterInputs))
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}
