// Package stats aggregates key events and renders typing statistics.
package stats

import (
	"sort"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// TopKeys returns the n most pressed keys, ordered by count, then most recent
// press, then key code.
func TopKeys(keys map[uint16]model.KeyStat, n int) []model.KeyCount {
	if n <= 0 || len(keys) == 0 {
		return nil
	}
	items := make([]model.KeyCount, 0, len(keys))
	for code, st := range keys {
		items = append(items, model.KeyCount{
			Code:        code,
			Count:       st.Count,
			LastPressed: st.LastPressed,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		if !items[i].LastPressed.Equal(items[j].LastPressed) {
			return items[i].LastPressed.After(items[j].LastPressed)
		}
		return items[i].Code < items[j].Code
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
