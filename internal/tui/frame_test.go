package tui

import (
	"strings"
	"testing"
)

func TestFitLines(t *testing.T) {
	out := FitLines("ab\ncdef\nghi", 5, 2)
	if out != "ab   \ncdef " {
		t.Fatalf("unexpected fit: %q", out)
	}
	out = FitLines("x", 2, 3)
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected padding to 3 lines: %q", out)
	}
}

func TestMoveTab(t *testing.T) {
	if got := MoveTab(0, -1, 4); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := MoveTab(3, 1, 4); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := MoveTab(0, 1, 0); got != 0 {
		t.Fatalf("expected 0 for no tabs, got %d", got)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := TruncateLine("keyboard", 6); got != "key..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := TruncateLine("abc", 10); got != "abc" {
		t.Fatalf("short lines stay intact, got %q", got)
	}
}
