// Package input reads key presses from Linux evdev devices.
package input

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// Source yields key presses. Next blocks until a press is available.
// Close releases the device and unblocks a pending Next.
type Source interface {
	Next() (model.KeyEvent, error)
	Close() error
}

// ErrDevice matches every DeviceError.
var ErrDevice = errors.New("input device error")

// DeviceError reports a failed device operation.
type DeviceError struct {
	Op   string
	Path string
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDevice) hold for any DeviceError.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

// IsPermission reports whether err is a device error caused by missing access rights.
func IsPermission(err error) bool {
	return errors.Is(err, ErrDevice) && errors.Is(err, fs.ErrPermission)
}

// IsDisconnected reports whether the device went away mid-stream.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDevice) && (errors.Is(err, io.ErrUnexpectedEOF) || isNoDevice(err))
}

// IsEndOfInput reports whether a finite source ran out of events.
func IsEndOfInput(err error) bool {
	return errors.Is(err, ErrDevice) && errors.Is(err, io.EOF)
}

// IsClosed reports whether Next failed because the source was closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrDevice) && errors.Is(err, fs.ErrClosed)
}

// PermissionHint explains how to grant read access to input devices.
const PermissionHint = "add your user to the 'input' group (sudo usermod -aG input $USER) and log in again, or run as root"
