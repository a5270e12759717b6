package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
)

// Heat bands from coldest to hottest. BandUnused marks keys never pressed.
const (
	BandUnused = iota
	BandLow
	BandMild
	BandWarm
	BandHot
	BandMax
)

var bandStyles = [...]lipgloss.Style{
	BandUnused: lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A")),
	BandLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#3A6EA5")),
	BandMild:   lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#4FA36B")),
	BandWarm:   lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#D8C33A")),
	BandHot:    lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#E08A2E")),
	BandMax:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#D1343A")).Bold(true),
}

var bandLabels = [...]string{
	BandUnused: "unused",
	BandLow:    "<20%",
	BandMild:   "20-40%",
	BandWarm:   "40-60%",
	BandHot:    "60-80%",
	BandMax:    ">80%",
}

// Band classifies count relative to the busiest heatmap key.
func Band(count, peak uint64) int {
	if count == 0 || peak == 0 {
		return BandUnused
	}
	ratio := float64(count) / float64(peak)
	switch {
	case ratio > 0.8:
		return BandMax
	case ratio > 0.6:
		return BandHot
	case ratio > 0.4:
		return BandWarm
	case ratio > 0.2:
		return BandMild
	default:
		return BandLow
	}
}

// heatmapPeak is the highest count among keys on the grid. Keys off the grid never set the scale.
func heatmapPeak(keys map[uint16]model.KeyStat) uint64 {
	var peak uint64
	for code, st := range keys {
		if !layout.PositionOf(code).Known() {
			continue
		}
		peak = max(peak, st.Count)
	}
	return peak
}

const cellWidth = 5

func renderHeatmap(keys map[uint16]model.KeyStat) string {
	peak := heatmapPeak(keys)
	rows := layout.Rows()
	lines := make([]string, 0, len(rows)+2)
	for r, row := range rows {
		cells := make([]string, 0, len(row))
		for _, k := range row {
			w := cellWidth
			if k.Code == layout.CodeSpace {
				w = cellWidth * 6
			}
			label := runewidth.Truncate(k.Label, w-2, "")
			cell := runewidth.FillRight(" "+label, w)
			cells = append(cells, bandStyles[Band(keys[k.Code].Count, peak)].Render(cell))
		}
		// Stagger rows like a physical keyboard.
		indent := strings.Repeat(" ", r*2)
		if r == len(rows)-1 {
			indent = strings.Repeat(" ", cellWidth*3)
		}
		lines = append(lines, indent+strings.Join(cells, " "))
	}
	lines = append(lines, "", renderLegend())
	return strings.Join(lines, "\n")
}

func renderLegend() string {
	parts := make([]string, 0, len(bandLabels)+1)
	parts = append(parts, HeaderStyle.Render("Legend:"))
	for b := BandMax; b >= BandUnused; b-- {
		parts = append(parts, bandStyles[b].Render(" "+bandLabels[b]+" "))
	}
	return strings.Join(parts, " ")
}
