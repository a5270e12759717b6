package store

import (
	"errors"
	"fmt"
)

// Kind classifies a persistence failure.
type Kind int

const (
	// Unreadable means the state file exists but could not be read.
	Unreadable Kind = iota + 1
	// Corrupt means the state file was read but does not hold valid state.
	Corrupt
	// Unwritable means a save could not be completed.
	Unwritable
)

func (k Kind) String() string {
	switch k {
	case Unreadable:
		return "unreadable"
	case Corrupt:
		return "corrupt"
	case Unwritable:
		return "unwritable"
	default:
		return "unknown"
	}
}

var (
	// ErrUnreadable matches errors of kind Unreadable.
	ErrUnreadable = errors.New("state file unreadable")
	// ErrCorrupt matches errors of kind Corrupt.
	ErrCorrupt = errors.New("state file corrupt")
	// ErrUnwritable matches errors of kind Unwritable.
	ErrUnwritable = errors.New("state file unwritable")
	// ErrLocked means another process holds the state file lock.
	ErrLocked = errors.New("state file in use by a running capture")
)

// Error describes a failed load or save.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreadable:
		return e.Kind == Unreadable
	case ErrCorrupt:
		return e.Kind == Corrupt
	case ErrUnwritable:
		return e.Kind == Unwritable
	}
	return false
}
