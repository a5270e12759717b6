package statsui

import (
	"testing"

	"github.com/verte-zerg/ctrlq/internal/model"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("", "")
	if err != nil || f.Since != nil || f.Last != 0 {
		t.Fatalf("expected empty filter, got %+v %v", f, err)
	}
	f, err = ParseFilter(" 2026-01-31 ", "7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Since == nil || f.Since.Day() != 31 || f.Last != 7 {
		t.Fatalf("unexpected filter %+v", f)
	}
	if _, err := ParseFilter("31/01/2026", ""); err == nil {
		t.Fatalf("expected bad date error")
	}
	if _, err := ParseFilter("", "-1"); err == nil {
		t.Fatalf("expected negative last error")
	}
}

func TestDescribeFilter(t *testing.T) {
	if got := describeFilter(model.HistoryFilter{}); got != "Filter: since=any  last=all" {
		t.Fatalf("unexpected description %q", got)
	}
}
