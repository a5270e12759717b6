package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// History is the archive read side used by reports.
type History interface {
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.Session, error)
	ListDays(ctx context.Context, since *time.Time) ([]model.DayAggregate, error)
}

// Report contains archived history prepared for rendering.
type Report struct {
	Sessions []model.Session
	Days     []model.DayAggregate
	AvgWPM   float64
	Total    uint64
}

// BuildReport loads archived sessions and days matching filter.
func BuildReport(ctx context.Context, h History, filter model.HistoryFilter) (Report, error) {
	sessions, err := h.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	days, err := h.ListDays(ctx, filter.Since)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list days: %w", err)
	}
	return newReport(sessions, days), nil
}

// ReportFromState builds the same report from the state file alone, for
// setups without an archive.
func ReportFromState(st model.State, filter model.HistoryFilter) Report {
	sessions := make([]model.Session, 0, len(st.Sessions))
	for _, s := range st.Sessions {
		if filter.Since != nil && s.End.Before(*filter.Since) {
			continue
		}
		sessions = append(sessions, s)
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}
	var days []model.DayAggregate
	for _, d := range SortedDays(st.Days) {
		if filter.Since != nil && d.Date < model.DayKey(*filter.Since) {
			continue
		}
		days = append(days, d)
	}
	return newReport(sessions, days)
}

func newReport(sessions []model.Session, days []model.DayAggregate) Report {
	var total uint64
	for _, s := range sessions {
		total += s.Keystrokes
	}
	return Report{
		Sessions: sessions,
		Days:     days,
		AvgWPM:   AverageSessionWPM(sessions),
		Total:    total,
	}
}

// RenderSessions prints archived sessions, most recent last.
func RenderSessions(w io.Writer, sessions []model.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	headers := []string{"Start", "Duration", "Keystrokes", "WPM"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.Start.Local().Format("2006-01-02 15:04"),
			FormatDuration(s.Duration()),
			fmt.Sprintf("%d", s.Keystrokes),
			fmt.Sprintf("%.1f", s.WPM()),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
