package stats

import (
	"sort"

	"github.com/verte-zerg/ctrlq/internal/layout"
	"github.com/verte-zerg/ctrlq/internal/model"
)

// ColdKeys returns the n least used keys on the heatmap grid. Keys never
// pressed are reported with a zero count.
func ColdKeys(keys map[uint16]model.KeyStat, n int) []model.KeyCount {
	codes := layout.Codes()
	if n <= 0 || len(codes) == 0 {
		return nil
	}
	candidates := make([]model.KeyCount, 0, len(codes))
	for _, code := range codes {
		st := keys[code]
		candidates = append(candidates, model.KeyCount{
			Code:        code,
			Count:       st.Count,
			LastPressed: st.LastPressed,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Count == candidates[j].Count {
			return candidates[i].Code < candidates[j].Code
		}
		return candidates[i].Count < candidates[j].Count
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}
