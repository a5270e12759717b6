package input

import (
	"io"
	"io/fs"
	"sync"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// Replay is a Source over a fixed event list. After the last event Next
// fails with an error matching IsEndOfInput.
type Replay struct {
	mu     sync.Mutex
	events []model.KeyEvent
	pos    int
	closed bool
}

// NewReplay returns a source that yields events in order.
func NewReplay(events []model.KeyEvent) *Replay {
	return &Replay{events: append([]model.KeyEvent(nil), events...)}
}

// Next returns the next scripted event.
func (r *Replay) Next() (model.KeyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return model.KeyEvent{}, &DeviceError{Op: "read", Path: "replay", Err: fs.ErrClosed}
	}
	if r.pos >= len(r.events) {
		return model.KeyEvent{}, &DeviceError{Op: "read", Path: "replay", Err: io.EOF}
	}
	ev := r.events[r.pos]
	r.pos++
	return ev, nil
}

// Close marks the replay closed.
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Keystroke is one generated press and the pause before it.
type Keystroke struct {
	Code  uint16
	Delay time.Duration
}

// Paced is a Source that emits generated keystrokes in real time until closed.
type Paced struct {
	next  func() Keystroke
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
	timer *time.Timer
}

// NewPaced returns a source that waits each keystroke's delay before yielding it.
func NewPaced(next func() Keystroke) *Paced {
	return &Paced{next: next, now: time.Now, done: make(chan struct{})}
}

// Next waits for the next generated keystroke or for Close.
func (p *Paced) Next() (model.KeyEvent, error) {
	ks := p.next()
	if p.timer == nil {
		p.timer = time.NewTimer(ks.Delay)
	} else {
		p.timer.Reset(ks.Delay)
	}
	select {
	case <-p.done:
		p.timer.Stop()
		return model.KeyEvent{}, &DeviceError{Op: "read", Path: "demo", Err: fs.ErrClosed}
	case <-p.timer.C:
		return model.KeyEvent{Code: ks.Code, Time: p.now()}, nil
	}
}

// Close unblocks a pending Next.
func (p *Paced) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
