package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
)

func TestTopKeysOrdering(t *testing.T) {
	base := time.Unix(1000, 0)
	keys := map[uint16]model.KeyStat{
		30: {Count: 3, LastPressed: base},
		31: {Count: 5, LastPressed: base},
		32: {Count: 3, LastPressed: base.Add(time.Second)},
		33: {Count: 3, LastPressed: base},
	}
	top := TopKeys(keys, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(top))
	}
	want := []uint16{31, 32, 30}
	for i, code := range want {
		if top[i].Code != code {
			t.Fatalf("position %d: expected %d, got %d (%v)", i, code, top[i].Code, top)
		}
	}
}

func TestTopKeysBounds(t *testing.T) {
	keys := map[uint16]model.KeyStat{30: {Count: 1}}
	if got := TopKeys(keys, 0); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
	if got := TopKeys(keys, 10); len(got) != 1 {
		t.Fatalf("expected 1 key, got %d", len(got))
	}
	if got := TopKeys(nil, 5); got != nil {
		t.Fatalf("expected nil for empty map, got %v", got)
	}
}

func TestColdKeys(t *testing.T) {
	keys := map[uint16]model.KeyStat{}
	for _, code := range []uint16{2, 3, 4} {
		keys[code] = model.KeyStat{Count: 10}
	}
	keys[29] = model.KeyStat{Count: 0}
	cold := ColdKeys(keys, 2)
	if len(cold) != 2 {
		t.Fatalf("expected 2 cold keys, got %d", len(cold))
	}
	for _, kc := range cold {
		if kc.Count != 0 {
			t.Fatalf("expected unused keys first, got %+v", kc)
		}
		if kc.Code == 29 {
			t.Fatalf("keys off the heatmap must not be reported")
		}
	}
	if cold[0].Code >= cold[1].Code {
		t.Fatalf("expected ties ordered by code: %v", cold)
	}
}
