package statsui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// ParseFilter parses a since date (YYYY-MM-DD, local time) and a session count.
// Empty values leave the corresponding bound unset.
func ParseFilter(since, last string) (model.HistoryFilter, error) {
	var filter model.HistoryFilter
	since = strings.TrimSpace(since)
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryFilter{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		filter.Since = &parsed
	}
	last = strings.TrimSpace(last)
	if last != "" {
		parsed, err := strconv.Atoi(last)
		if err != nil || parsed < 0 {
			return model.HistoryFilter{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		filter.Last = parsed
	}
	return filter, nil
}

func describeFilter(f model.HistoryFilter) string {
	since := "any"
	if f.Since != nil {
		since = f.Since.Format("2006-01-02")
	}
	last := "all"
	if f.Last > 0 {
		last = strconv.Itoa(f.Last)
	}
	return fmt.Sprintf("Filter: since=%s  last=%s", since, last)
}
