//go:build linux

package input

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/verte-zerg/ctrlq/internal/model"
)

const (
	readBatch   = 64
	nameBufSize = 256
)

// Device reads key presses from an evdev character device.
type Device struct {
	path   string
	name   string
	policy model.RepeatPolicy
	now    func() time.Time

	f         *os.File
	buf       []byte
	pending   []model.KeyEvent
	closeOnce sync.Once
	closeErr  error
}

// Open opens an evdev node such as /dev/input/event3 for reading.
func Open(path string, policy model.RepeatPolicy) (*Device, error) {
	// O_NONBLOCK puts the descriptor on the runtime poller; Close then interrupts Read.
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceError{Op: "open", Path: path, Err: unwrapPathError(err)}
	}
	d := &Device{
		path:   path,
		policy: policy,
		now:    time.Now,
		f:      f,
		buf:    make([]byte, eventSize*readBatch),
	}
	d.name = deviceName(f)
	return d, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Name returns the kernel device name, or an empty string when unavailable.
func (d *Device) Name() string {
	return d.name
}

// Next blocks until the next key press.
func (d *Device) Next() (model.KeyEvent, error) {
	for len(d.pending) == 0 {
		n, err := d.f.Read(d.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return model.KeyEvent{}, &DeviceError{Op: "read", Path: d.path, Err: unwrapPathError(err)}
		}
		if n%eventSize != 0 {
			return model.KeyEvent{}, &DeviceError{Op: "read", Path: d.path, Err: io.ErrUnexpectedEOF}
		}
		for off := 0; off < n; off += eventSize {
			raw, err := decodeEvent(d.buf[off : off+eventSize])
			if err != nil {
				return model.KeyEvent{}, &DeviceError{Op: "decode", Path: d.path, Err: err}
			}
			if ev, ok := raw.keyEvent(d.policy, d.now); ok {
				d.pending = append(d.pending, ev)
			}
		}
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, nil
}

// Close releases the device. It is safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		if err := d.f.Close(); err != nil {
			d.closeErr = &DeviceError{Op: "close", Path: d.path, Err: err}
		}
	})
	return d.closeErr
}

// EVIOCGNAME(len) is _IOC(_IOC_READ, 'E', 0x06, len).
func eviocgname(size int) uint {
	const iocRead uint = 2
	return iocRead<<30 | uint(size)<<16 | uint('E')<<8 | 0x06
}

func deviceName(f *os.File) string {
	conn, err := f.SyscallConn()
	if err != nil {
		return ""
	}
	buf := make([]byte, nameBufSize)
	var ioctlErr error
	if err := conn.Control(func(fd uintptr) {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(eviocgname(len(buf))), uintptr(unsafe.Pointer(&buf[0])))
		if errno != 0 {
			ioctlErr = errno
		}
	}); err != nil || ioctlErr != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

func isNoDevice(err error) bool {
	return errors.Is(err, unix.ENODEV)
}
