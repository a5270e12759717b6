// Package session splits a keystroke stream into sessions separated by idle gaps.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// DefaultIdleThreshold is the inactivity gap that ends a session.
const DefaultIdleThreshold = 5 * time.Minute

// Tracker is not safe for concurrent use; the owner serialises access.
type Tracker struct {
	idle  time.Duration
	newID func() string

	closed    []model.Session
	open      *model.Session
	lastEvent time.Time
}

// NewTracker returns a tracker with no open session.
func NewTracker(idle time.Duration, newID func() string) *Tracker {
	if idle <= 0 {
		idle = DefaultIdleThreshold
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Tracker{idle: idle, newID: newID}
}

// Seed appends previously stored sessions. Anything still marked open is closed as-is.
func (t *Tracker) Seed(history []model.Session) {
	for _, s := range history {
		s.Open = false
		if s.ID == "" {
			s.ID = t.newID()
		}
		t.closed = append(t.closed, s)
	}
}

// Observe accounts one keystroke at ts and reports whether it started a new session.
func (t *Tracker) Observe(ts time.Time) bool {
	if t.open != nil && ts.Sub(t.lastEvent) <= t.idle {
		t.open.Keystrokes++
		if ts.After(t.lastEvent) {
			t.lastEvent = ts
		}
		return false
	}
	if t.open != nil {
		// The idle gap belongs to neither session.
		t.Close(t.lastEvent)
	}
	t.open = &model.Session{
		ID:         t.newID(),
		Start:      ts,
		Keystrokes: 1,
	}
	t.lastEvent = ts
	return true
}

// Close ends the open session at end. It is a no-op without an open session.
func (t *Tracker) Close(end time.Time) {
	if t.open == nil {
		return
	}
	s := *t.open
	if end.Before(s.Start) {
		end = s.Start
	}
	s.End = end
	t.closed = append(t.closed, s)
	t.open = nil
}

// Current returns the open session.
func (t *Tracker) Current() (model.Session, bool) {
	if t.open == nil {
		return model.Session{}, false
	}
	s := *t.open
	s.End = t.lastEvent
	s.Open = true
	return s, true
}

// History returns closed sessions followed by the open one.
func (t *Tracker) History() []model.Session {
	out := make([]model.Session, 0, len(t.closed)+1)
	out = append(out, t.closed...)
	if s, ok := t.Current(); ok {
		out = append(out, s)
	}
	return out
}
