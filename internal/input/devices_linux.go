//go:build linux

package input

import "os"

const procDevices = "/proc/bus/input/devices"

// FindKeyboards lists keyboards known to the kernel input subsystem.
func FindKeyboards() ([]Keyboard, error) {
	f, err := os.Open(procDevices)
	if err != nil {
		return nil, &DeviceError{Op: "list", Path: procDevices, Err: unwrapPathError(err)}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only proc file.
			_ = cerr
		}
	}()
	kbs, err := parseDevices(f)
	if err != nil {
		return nil, &DeviceError{Op: "list", Path: procDevices, Err: err}
	}
	return kbs, nil
}
