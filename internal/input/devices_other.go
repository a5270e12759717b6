//go:build !linux

package input

import "errors"

// FindKeyboards is unsupported outside Linux.
func FindKeyboards() ([]Keyboard, error) {
	return nil, &DeviceError{Op: "list", Err: errors.ErrUnsupported}
}
