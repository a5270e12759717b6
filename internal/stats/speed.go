package stats

import "time"

// maxWindowEntries caps memory if the clock stalls while events keep arriving.
const maxWindowEntries = 1 << 16

// speedWindow holds recent press times in non-decreasing order.
type speedWindow struct {
	horizon time.Duration
	times   []time.Time
	head    int
}

func newSpeedWindow(horizon time.Duration) *speedWindow {
	return &speedWindow{horizon: horizon}
}

func (w *speedWindow) push(t time.Time) {
	if n := len(w.times); n > w.head && t.Before(w.times[n-1]) {
		t = w.times[n-1]
	}
	w.times = append(w.times, t)
	w.evict(t.Add(-w.horizon))
	if w.len() > maxWindowEntries {
		w.head = len(w.times) - maxWindowEntries
	}
}

// evict drops entries strictly older than cutoff.
func (w *speedWindow) evict(cutoff time.Time) {
	for w.head < len(w.times) && w.times[w.head].Before(cutoff) {
		w.head++
	}
	if w.head == len(w.times) {
		w.times = w.times[:0]
		w.head = 0
		return
	}
	if w.head > 64 && w.head > len(w.times)/2 {
		n := copy(w.times, w.times[w.head:])
		w.times = w.times[:n]
		w.head = 0
	}
}

func (w *speedWindow) len() int {
	return len(w.times) - w.head
}

// wpm uses the five-keystrokes-per-word convention over the full horizon.
func (w *speedWindow) wpm(now time.Time) float64 {
	w.evict(now.Add(-w.horizon))
	n := w.len()
	if n == 0 || w.horizon <= 0 {
		return 0
	}
	return float64(n) / 5.0 / w.horizon.Minutes()
}
