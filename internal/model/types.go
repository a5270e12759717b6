// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// KeyEvent is a single physical key press.
type KeyEvent struct {
	Code   uint16
	Time   time.Time
	Repeat bool
}

// KeyStat stores the running count for one key code.
type KeyStat struct {
	Count       uint64
	LastPressed time.Time
}

// KeyCount is a ranked key entry.
type KeyCount struct {
	Code        uint16
	Count       uint64
	LastPressed time.Time
}

// Session is a contiguous period of typing bounded by idle gaps.
// For the live session End holds the time of its latest keystroke and Open is set.
type Session struct {
	ID         string
	Start      time.Time
	End        time.Time
	Keystrokes uint64
	Open       bool
}

// Duration returns the span between the first and last keystroke.
func (s Session) Duration() time.Duration {
	if s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// WPM is the average speed over the session, five keystrokes to a word.
func (s Session) WPM() float64 {
	minutes := s.Duration().Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.Keystrokes) / 5.0 / minutes
}

// DayStats aggregates activity for one local calendar day.
type DayStats struct {
	Keystrokes uint64
	Sessions   uint64
	Hours      [24]uint64
	// Keys is the day's key distribution by key code. Nil until the first press.
	Keys       map[uint16]uint64
}

// Press counts one key press at t.
func (d *DayStats) Press(code uint16, t time.Time) {
	d.Keystrokes++
	d.Hours[t.Local().Hour()]++
	if d.Keys == nil {
		d.Keys = map[uint16]uint64{}
	}
	d.Keys[code]++
}

// Clone returns a copy that shares no map with d.
func (d DayStats) Clone() DayStats {
	if d.Keys != nil {
		keys := make(map[uint16]uint64, len(d.Keys))
		for code, n := range d.Keys {
			keys[code] = n
		}
		d.Keys = keys
	}
	return d
}

// TopKey returns the day's most pressed key. Ties go to the lower code.
func (d DayStats) TopKey() (uint16, uint64, bool) {
	var best uint16
	var bestCount uint64
	for code, n := range d.Keys {
		if n > bestCount || (n == bestCount && code < best) {
			best, bestCount = code, n
		}
	}
	return best, bestCount, bestCount > 0
}

// MostActiveHour returns the hour with the most keystrokes, or -1 for an idle day.
func (d DayStats) MostActiveHour() int {
	best := -1
	var bestCount uint64
	for h, c := range d.Hours {
		if c > bestCount {
			best = h
			bestCount = c
		}
	}
	return best
}

// Add sums another day's counters into d.
func (d *DayStats) Add(other DayStats) {
	d.Keystrokes += other.Keystrokes
	d.Sessions += other.Sessions
	for h := range d.Hours {
		d.Hours[h] += other.Hours[h]
	}
	if len(other.Keys) > 0 && d.Keys == nil {
		d.Keys = make(map[uint16]uint64, len(other.Keys))
	}
	for code, n := range other.Keys {
		d.Keys[code] += n
	}
}

// DayKey formats the local date used to bucket day stats.
func DayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// State is the durable baseline restored at startup.
type State struct {
	Since    time.Time
	Total    uint64
	Keys     map[uint16]KeyStat
	Sessions []Session
	Days     map[string]DayStats
}

// Snapshot is a consistent point-in-time copy of all statistics.
type Snapshot struct {
	// StartedAt is when this process started recording; Since is the first recorded day overall.
	StartedAt time.Time
	Since     time.Time
	TakenAt   time.Time
	Total     uint64
	Keys      map[uint16]KeyStat
	WPM       float64
	// Repeats counts auto-repeat events recorded by this process. It is not persisted.
	Repeats   uint64
	Sessions  []Session
	Days      map[string]DayStats
}

// State strips the live-only fields from the snapshot.
func (s Snapshot) State() State {
	return State{
		Since:    s.Since,
		Total:    s.Total,
		Keys:     s.Keys,
		Sessions: s.Sessions,
		Days:     s.Days,
	}
}

// OpenSession returns the live session, if any.
func (s Snapshot) OpenSession() (Session, bool) {
	if n := len(s.Sessions); n > 0 && s.Sessions[n-1].Open {
		return s.Sessions[n-1], true
	}
	return Session{}, false
}

// RepeatPolicy decides what happens to hardware auto-repeat events.
type RepeatPolicy int

const (
	// RepeatCount treats every auto-repeat as a new press.
	RepeatCount RepeatPolicy = iota
	// RepeatIgnore drops auto-repeat events at the source.
	RepeatIgnore
)

// ParseRepeatPolicy parses "count" or "ignore".
func ParseRepeatPolicy(s string) (RepeatPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "count":
		return RepeatCount, nil
	case "ignore":
		return RepeatIgnore, nil
	default:
		return RepeatCount, fmt.Errorf("unknown repeat policy %q (use count or ignore)", s)
	}
}

func (p RepeatPolicy) String() string {
	if p == RepeatIgnore {
		return "ignore"
	}
	return "count"
}

// Config defines capture and display settings.
type Config struct {
	Device          string
	DataPath        string
	ArchivePath     string
	NoUI            bool
	IdleThreshold   time.Duration
	SpeedWindow     time.Duration
	SaveInterval    time.Duration
	RefreshInterval time.Duration
	Repeat          RepeatPolicy
	LogLevel        string
	LogFormat       string
}

// HistoryFilter selects archived sessions for reporting.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}

// DayAggregate is one archived day row.
type DayAggregate struct {
	Date  string
	Stats DayStats
}
