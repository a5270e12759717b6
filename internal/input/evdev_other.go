//go:build !linux

package input

import (
	"errors"

	"github.com/verte-zerg/ctrlq/internal/model"
)

// Device is unavailable outside Linux.
type Device struct{}

// Open always fails: evdev exists only on Linux.
func Open(path string, _ model.RepeatPolicy) (*Device, error) {
	return nil, &DeviceError{Op: "open", Path: path, Err: errors.ErrUnsupported}
}

// Path returns an empty string.
func (d *Device) Path() string { return "" }

// Name returns an empty string.
func (d *Device) Name() string { return "" }

// Next always fails.
func (d *Device) Next() (model.KeyEvent, error) {
	return model.KeyEvent{}, &DeviceError{Op: "read", Err: errors.ErrUnsupported}
}

// Close is a no-op.
func (d *Device) Close() error { return nil }

func isNoDevice(error) bool { return false }
