package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ctrlq/internal/model"
)

type fakeSource struct {
	calls int
	snap  model.Snapshot
}

func (f *fakeSource) Snapshot() model.Snapshot {
	f.calls++
	return f.snap
}

func sampleSnapshot() model.Snapshot {
	now := time.Date(2026, 6, 1, 14, 30, 0, 0, time.Local)
	var hours [24]uint64
	hours[14] = 1234
	return model.Snapshot{
		StartedAt: now.Add(-time.Hour),
		Since:     now.Add(-48 * time.Hour),
		TakenAt:   now,
		Total:     1234,
		WPM:       42.5,
		Keys: map[uint16]model.KeyStat{
			30: {Count: 1000, LastPressed: now.Add(-time.Minute)},
			48: {Count: 234, LastPressed: now.Add(-time.Hour)},
		},
		Sessions: []model.Session{
			{ID: "a", Start: now.Add(-2 * time.Hour), End: now.Add(-90 * time.Minute), Keystrokes: 900},
			{ID: "b", Start: now.Add(-10 * time.Minute), End: now, Keystrokes: 334, Open: true},
		},
		Days: map[string]model.DayStats{
			model.DayKey(now): {Keystrokes: 1234, Sessions: 2, Hours: hours},
		},
	}
}

func sized(t *testing.T, m *Model) {
	t.Helper()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTickRefreshesSnapshot(t *testing.T) {
	src := &fakeSource{}
	m := NewModel(src, Options{})
	if src.calls != 1 {
		t.Fatalf("expected initial snapshot, got %d calls", src.calls)
	}
	src.snap = sampleSnapshot()
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("expected next tick to be scheduled")
	}
	if m.snap.Total != 1234 {
		t.Fatalf("expected refreshed total, got %d", m.snap.Total)
	}
	if len(m.keyTable.Rows()) != 2 || m.keyTable.Rows()[0][1] != "A" {
		t.Fatalf("unexpected key rows: %v", m.keyTable.Rows())
	}
	if got := m.sessionTable.Rows()[0][4]; got != "live" {
		t.Fatalf("expected newest session first, got %q", got)
	}
}

func TestTabNavigationWraps(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab != tabSessions {
		t.Fatalf("expected wrap to last tab, got %d", m.activeTab)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to first tab, got %d", m.activeTab)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != tabTopKeys || !m.keyTable.Focused() {
		t.Fatalf("expected focused top keys tab")
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{})
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); !isQuit(cmd) {
		t.Fatalf("q should quit")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); !isQuit(cmd) {
		t.Fatalf("ctrl+c should quit")
	}
}

func TestCaptureStoppedShowsErrorAndQuits(t *testing.T) {
	m := NewModel(&fakeSource{snap: sampleSnapshot()}, Options{Device: "/dev/input/event3"})
	sized(t, m)
	_, cmd := m.Update(CaptureStoppedMsg{Err: errors.New("read /dev/input/event3: no such device")})
	if !isQuit(cmd) {
		t.Fatalf("expected quit after capture stopped")
	}
	if m.Err() == nil {
		t.Fatalf("expected error to be kept")
	}
	view := m.View()
	for _, want := range []string{"capture stopped: read /dev/input/event3", "[capture stopped]", "Device: /dev/input/event3"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Fatalf("no ticks after stop")
	}
}

func TestOverviewView(t *testing.T) {
	m := NewModel(&fakeSource{snap: sampleSnapshot()}, Options{})
	sized(t, m)
	view := m.View()
	for _, want := range []string{"Total keystrokes", "1,234", "42.5", "peak 14:00", "Tracking since 2 days ago"} {
		if !strings.Contains(view, want) {
			t.Fatalf("overview missing %q:\n%s", want, view)
		}
	}
	if got := len(strings.Split(view, "\n")); got != 40 {
		t.Fatalf("expected view to fill 40 lines, got %d", got)
	}
}

func TestEmptyTabs(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{})
	sized(t, m)
	m.activeTab = tabTopKeys
	if !strings.Contains(m.View(), "No keystrokes recorded yet.") {
		t.Fatalf("expected empty key message")
	}
	m.activeTab = tabSessions
	if !strings.Contains(m.View(), "No sessions yet.") {
		t.Fatalf("expected empty sessions message")
	}
}

func TestViewBeforeSize(t *testing.T) {
	m := NewModel(&fakeSource{}, Options{})
	if m.View() != "" {
		t.Fatalf("expected empty view before the first resize")
	}
}

type resettableSource struct {
	fakeSource
	resets []time.Time
}

func (r *resettableSource) Reset(now time.Time) {
	r.resets = append(r.resets, now)
	r.snap = model.Snapshot{Since: now, StartedAt: now, TakenAt: now}
}

func TestResetKeyClearsLiveStats(t *testing.T) {
	src := &resettableSource{fakeSource: fakeSource{snap: sampleSnapshot()}}
	m := NewModel(src, Options{})
	resetAt := time.Date(2026, 6, 1, 14, 31, 5, 0, time.Local)
	m.clock = func() time.Time { return resetAt }
	sized(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if len(src.resets) != 1 || !src.resets[0].Equal(resetAt) {
		t.Fatalf("expected one reset at %v, got %v", resetAt, src.resets)
	}
	if m.snap.Total != 0 || len(m.keyTable.Rows()) != 0 || len(m.sessionTable.Rows()) != 0 {
		t.Fatalf("expected cleared dashboard, got total %d", m.snap.Total)
	}
	view := m.View()
	for _, want := range []string{"Reset at 14:31:05", "Reset: r"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	m.Update(CaptureStoppedMsg{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if len(src.resets) != 1 {
		t.Fatalf("reset must be ignored after capture stopped")
	}
}

func TestResetKeyWithoutResetter(t *testing.T) {
	m := NewModel(&fakeSource{snap: sampleSnapshot()}, Options{})
	sized(t, m)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.snap.Total != 1234 {
		t.Fatalf("read-only source must keep its stats")
	}
	if strings.Contains(m.View(), "Reset: r") {
		t.Fatalf("reset hint shown for a read-only source")
	}
}

func TestOverviewShowsRepeats(t *testing.T) {
	snap := sampleSnapshot()
	snap.Repeats = 34
	m := NewModel(&fakeSource{snap: snap}, Options{})
	sized(t, m)
	if !strings.Contains(m.View(), "Auto-repeats this run: 34 of 1,234") {
		t.Fatalf("expected auto-repeat line:\n%s", m.View())
	}
}
