package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/ctrlq/internal/model"
)

func TestBand(t *testing.T) {
	cases := []struct {
		count, peak uint64
		want        int
	}{
		{0, 10, BandUnused},
		{5, 0, BandUnused},
		{1, 100, BandLow},
		{20, 100, BandLow},
		{21, 100, BandMild},
		{41, 100, BandWarm},
		{61, 100, BandHot},
		{80, 100, BandHot},
		{81, 100, BandMax},
		{100, 100, BandMax},
	}
	for _, tc := range cases {
		if got := Band(tc.count, tc.peak); got != tc.want {
			t.Fatalf("Band(%d, %d) = %d, want %d", tc.count, tc.peak, got, tc.want)
		}
	}
}

func TestHeatmapPeakIgnoresOffGridKeys(t *testing.T) {
	keys := map[uint16]model.KeyStat{
		30: {Count: 10},
		1:  {Count: 1000},
	}
	if got := heatmapPeak(keys); got != 10 {
		t.Fatalf("expected peak 10, got %d", got)
	}
}

func TestRenderHeatmapHasEveryRowAndLegend(t *testing.T) {
	out := renderHeatmap(map[uint16]model.KeyStat{30: {Count: 3}})
	for _, want := range []string{"Q", "A", "Z", "SPACE", "Legend:", "unused", ">80%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("heatmap missing %q:\n%s", want, out)
		}
	}
}
