//go:build linux

package input

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// openPipeDevice opens the read end of a pipe through /proc so Device sees a
// pollable character stream like an evdev node.
func openPipeDevice(t *testing.T, policy model.RepeatPolicy) (*Device, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	dev, err := Open(fmt.Sprintf("/proc/self/fd/%d", r.Fd()), policy)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return dev, w
}

func TestDeviceReadsPresses(t *testing.T) {
	dev, w := openPipeDevice(t, model.RepeatIgnore)
	var buf []byte
	for _, ev := range []rawEvent{
		{Sec: 10, Type: evKey, Code: 30, Value: valuePress},
		{Sec: 10, Type: 0},
		{Sec: 10, Type: evKey, Code: 30, Value: valueRepeat},
		{Sec: 10, Type: evKey, Code: 30, Value: valueRelease},
		{Sec: 11, Type: evKey, Code: 48, Value: valuePress},
	} {
		buf = append(buf, rawBytes(ev)...)
	}
	if _, err := w.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := dev.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	second, err := dev.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if first.Code != 30 || second.Code != 48 {
		t.Fatalf("expected presses 30 then 48, got %d and %d", first.Code, second.Code)
	}
	if !second.Time.Equal(time.Unix(11, 0)) {
		t.Fatalf("unexpected timestamp %v", second.Time)
	}
	if dev.Name() != "" {
		t.Fatalf("a pipe has no evdev name, got %q", dev.Name())
	}
}

func TestDeviceCloseUnblocksNext(t *testing.T) {
	dev, _ := openPipeDevice(t, model.RepeatCount)
	errCh := make(chan error, 1)
	go func() {
		_, err := dev.Next()
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	if err := dev.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDevice) {
			t.Fatalf("expected device error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Next did not return after Close")
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestDeviceWriterGoneIsDisconnect(t *testing.T) {
	dev, w := openPipeDevice(t, model.RepeatCount)
	_ = w.Close()
	_, err := dev.Next()
	if !IsDisconnected(err) {
		t.Fatalf("expected disconnect, got %v", err)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "event99"), model.RepeatCount)
	if !errors.Is(err, ErrDevice) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected device error wrapping not-exist, got %v", err)
	}
	var de *DeviceError
	if !errors.As(err, &de) || de.Op != "open" {
		t.Fatalf("expected open DeviceError, got %#v", err)
	}
}

func TestNoDeviceIsDisconnect(t *testing.T) {
	err := &DeviceError{Op: "read", Path: "/dev/input/event3", Err: unix.ENODEV}
	if !IsDisconnected(err) {
		t.Fatalf("expected ENODEV to count as disconnect")
	}
}

func TestEviocgname(t *testing.T) {
	// EVIOCGNAME(256) from linux/input.h.
	if got := eviocgname(256); got != 0x81004506 {
		t.Fatalf("unexpected ioctl request %#x", got)
	}
}
