package input

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// struct input_event is a timeval of two native longs followed by
// type u16, code u16 and value s32.
const (
	wordSize  = strconv.IntSize / 8
	eventSize = 2*wordSize + 8

	evKey = 0x01

	valueRelease = 0
	valuePress   = 1
	valueRepeat  = 2
)

type rawEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

func decodeEvent(b []byte) (rawEvent, error) {
	if len(b) < eventSize {
		return rawEvent{}, fmt.Errorf("short event: %d bytes", len(b))
	}
	var ev rawEvent
	if wordSize == 8 {
		ev.Sec = int64(binary.NativeEndian.Uint64(b[0:8]))
		ev.Usec = int64(binary.NativeEndian.Uint64(b[8:16]))
	} else {
		ev.Sec = int64(int32(binary.NativeEndian.Uint32(b[0:4])))
		ev.Usec = int64(int32(binary.NativeEndian.Uint32(b[4:8])))
	}
	off := 2 * wordSize
	ev.Type = binary.NativeEndian.Uint16(b[off : off+2])
	ev.Code = binary.NativeEndian.Uint16(b[off+2 : off+4])
	ev.Value = int32(binary.NativeEndian.Uint32(b[off+4 : off+8]))
	return ev, nil
}

func encodeEvent(b []byte, ev rawEvent) {
	if wordSize == 8 {
		binary.NativeEndian.PutUint64(b[0:8], uint64(ev.Sec))
		binary.NativeEndian.PutUint64(b[8:16], uint64(ev.Usec))
	} else {
		binary.NativeEndian.PutUint32(b[0:4], uint32(ev.Sec))
		binary.NativeEndian.PutUint32(b[4:8], uint32(ev.Usec))
	}
	off := 2 * wordSize
	binary.NativeEndian.PutUint16(b[off:off+2], ev.Type)
	binary.NativeEndian.PutUint16(b[off+2:off+4], ev.Code)
	binary.NativeEndian.PutUint32(b[off+4:off+8], uint32(ev.Value))
}

// keyEvent converts a raw record into a press. Releases, non-key records and
// (under RepeatIgnore) auto-repeats are dropped.
func (ev rawEvent) keyEvent(policy model.RepeatPolicy, now func() time.Time) (model.KeyEvent, bool) {
	if ev.Type != evKey {
		return model.KeyEvent{}, false
	}
	switch ev.Value {
	case valuePress:
	case valueRepeat:
		if policy == model.RepeatIgnore {
			return model.KeyEvent{}, false
		}
	default:
		return model.KeyEvent{}, false
	}
	ts := time.Unix(ev.Sec, ev.Usec*int64(time.Microsecond))
	if ev.Sec == 0 && ev.Usec == 0 {
		ts = now()
	}
	return model.KeyEvent{Code: ev.Code, Time: ts, Repeat: ev.Value == valueRepeat}, true
}
