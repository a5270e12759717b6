package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
)

const sparkChars = " .:-=+*#%@"

// AverageSessionWPM averages Session.WPM over sessions that lasted at least a second.
func AverageSessionWPM(sessions []model.Session) float64 {
	var sum float64
	var n int
	for _, s := range sessions {
		if s.Duration() < time.Second {
			continue
		}
		sum += s.WPM()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Share returns count as a percentage of total.
func Share(count, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// HourValues converts an hourly histogram for Sparkline.
func HourValues(hours [24]uint64) []float64 {
	out := make([]float64, len(hours))
	for i, v := range hours {
		out[i] = float64(v)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// SortedDays returns day stats ordered by date ascending.
func SortedDays(days map[string]model.DayStats) []model.DayAggregate {
	out := make([]model.DayAggregate, 0, len(days))
	for date, st := range days {
		out = append(out, model.DayAggregate{Date: date, Stats: st})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// RenderSummary prints headline numbers for a snapshot.
func RenderSummary(w io.Writer, snap model.Snapshot) error {
	if snap.Total == 0 {
		_, err := fmt.Fprintln(w, "No keystrokes recorded yet.")
		return err
	}
	closed := closedSessions(snap.Sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Total keystrokes: %s", humanize.Comma(int64(snap.Total))),
		fmt.Sprintf("Unique keys: %d", len(snap.Keys)),
		fmt.Sprintf("Sessions: %d", len(snap.Sessions)),
		fmt.Sprintf("Avg session WPM: %.1f", AverageSessionWPM(closed)),
	}
	if !snap.Since.IsZero() {
		lines = append(lines, fmt.Sprintf("Tracking since: %s", snap.Since.Local().Format("2006-01-02 15:04")))
	}
	if today, ok := snap.Days[model.DayKey(snap.TakenAt)]; ok {
		lines = append(lines, fmt.Sprintf("Today: %s keystrokes", humanize.Comma(int64(today.Keystrokes))))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderKeyTable prints the top keys with their share of all keystrokes.
func RenderKeyTable(w io.Writer, keys []model.KeyCount, total uint64) error {
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Top Keys"); err != nil {
		return err
	}
	headers := []string{"#", "Key", "Count", "Share", "Last pressed"}
	rows := make([][]string, 0, len(keys))
	for i, kc := range keys {
		last := "never"
		if !kc.LastPressed.IsZero() {
			last = kc.LastPressed.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			layout.Name(kc.Code),
			humanize.Comma(int64(kc.Count)),
			fmt.Sprintf("%.1f%%", Share(kc.Count, total)),
			last,
		})
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDays prints per-day totals with an hourly sparkline.
func RenderDays(w io.Writer, days []model.DayAggregate) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(w, "No daily stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Daily"); err != nil {
		return err
	}
	headers := []string{"Date", "Keystrokes", "Sessions", "Peak hour", "Top key", "Activity (00-23)"}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		peak := "-"
		if h := d.Stats.MostActiveHour(); h >= 0 {
			peak = fmt.Sprintf("%02d:00", h)
		}
		top := "-"
		if code, n, ok := d.Stats.TopKey(); ok {
			top = fmt.Sprintf("%s (%s)", layout.Name(code), humanize.Comma(int64(n)))
		}
		rows = append(rows, []string{
			d.Date,
			humanize.Comma(int64(d.Stats.Keystrokes)),
			fmt.Sprintf("%d", d.Stats.Sessions),
			peak,
			top,
			Sparkline(HourValues(d.Stats.Hours)),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func closedSessions(sessions []model.Session) []model.Session {
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Open {
			out = append(out, s)
		}
	}
	return out
}

// FormatDuration renders a compact duration such as 1h02m, 4m05s or 12s.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
