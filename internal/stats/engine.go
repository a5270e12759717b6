package stats

import (
	"sync"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
	"github.com/verte-zerg/ctrlq/internal/session"
)

// DefaultSpeedWindow is the retention horizon for the rolling WPM figure.
const DefaultSpeedWindow = 60 * time.Second

// Options configures an Engine.
type Options struct {
	SpeedWindow   time.Duration
	IdleThreshold time.Duration
	Clock         func() time.Time
	NewID         func() string
}

// Engine aggregates key events. All state sits behind one mutex so a snapshot
// never sees a key count without its matching session and day update.
type Engine struct {
	mu sync.Mutex

	opts      Options
	clock     func() time.Time
	startedAt time.Time
	since     time.Time

	total    uint64
	repeats  uint64
	keys     map[uint16]model.KeyStat
	days     map[string]model.DayStats
	speed    *speedWindow
	sessions *session.Tracker
}

// NewEngine builds an engine whose counters start from baseline.
func NewEngine(opts Options, baseline model.State) *Engine {
	if opts.SpeedWindow <= 0 {
		opts.SpeedWindow = DefaultSpeedWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	e := &Engine{opts: opts, clock: opts.Clock}
	e.clear(e.clock())
	e.merge(baseline)
	return e
}

func (e *Engine) clear(now time.Time) {
	e.startedAt = now
	e.since = now
	e.total = 0
	e.repeats = 0
	e.keys = map[uint16]model.KeyStat{}
	e.days = map[string]model.DayStats{}
	e.speed = newSpeedWindow(e.opts.SpeedWindow)
	e.sessions = session.NewTracker(e.opts.IdleThreshold, e.opts.NewID)
}

func (e *Engine) merge(base model.State) {
	if !base.Since.IsZero() && base.Since.Before(e.since) {
		e.since = base.Since
	}
	e.total += base.Total
	for code, st := range base.Keys {
		cur := e.keys[code]
		cur.Count += st.Count
		if st.LastPressed.After(cur.LastPressed) {
			cur.LastPressed = st.LastPressed
		}
		e.keys[code] = cur
	}
	for day, st := range base.Days {
		cur := e.days[day]
		cur.Add(st)
		e.days[day] = cur
	}
	e.sessions.Seed(base.Sessions)
}

// Record applies one key press.
func (e *Engine) Record(ev model.KeyEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.total++
	if ev.Repeat {
		e.repeats++
	}
	st := e.keys[ev.Code]
	st.Count++
	st.LastPressed = ev.Time
	e.keys[ev.Code] = st

	e.speed.push(ev.Time)
	started := e.sessions.Observe(ev.Time)

	key := model.DayKey(ev.Time)
	day := e.days[key]
	day.Press(ev.Code, ev.Time)
	if started {
		day.Sessions++
	}
	e.days[key] = day
}

// CurrentWPM returns the rolling words-per-minute over the speed window.
func (e *Engine) CurrentWPM() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed.wpm(e.clock())
}

// TopKeys returns the n most pressed keys.
func (e *Engine) TopKeys(n int) []model.KeyCount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TopKeys(e.keys, n)
}

// Snapshot returns a deep copy of all statistics.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	keys := make(map[uint16]model.KeyStat, len(e.keys))
	for code, st := range e.keys {
		keys[code] = st
	}
	days := make(map[string]model.DayStats, len(e.days))
	for day, st := range e.days {
		days[day] = st.Clone()
	}
	return model.Snapshot{
		StartedAt: e.startedAt,
		Since:     e.since,
		TakenAt:   now,
		Total:     e.total,
		Keys:      keys,
		WPM:       e.speed.wpm(now),
		Repeats:   e.repeats,
		Sessions:  e.sessions.History(),
		Days:      days,
	}
}

// Reset discards every counter, including the restored baseline, and starts
// tracking again from now. The next save overwrites the state file.
func (e *Engine) Reset(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clear(now)
}

// Finish closes the open session at now. Call it once capture has stopped.
func (e *Engine) Finish(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions.Close(now)
}
