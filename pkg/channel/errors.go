package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is matched by every *CapabilityError
	ErrNotSupported = errors.New("operation not supported")

	// ErrUnavailable means the transport cannot be used at all
	ErrUnavailable = errors.New("channel unavailable")

	// ErrClosed is returned by operations on a closed channel
	ErrClosed = errors.New("channel closed")

	// ErrNotConnected is returned when no peer is attached
	ErrNotConnected = errors.New("no peer attached")
)

// CapabilityError reports an operation the channel cannot perform in its mode
type CapabilityError struct {
	Op     string
	Mode   Mode
	Reason string
}

func (e *CapabilityError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s not supported in %s mode", e.Op, e.Mode)
	}
	return fmt.Sprintf("%s not supported in %s mode: %s", e.Op, e.Mode, e.Reason)
}

// Is makes errors.Is(err, ErrNotSupported) match
func (e *CapabilityError) Is(target error) bool {
	return target == ErrNotSupported
}

// Error wraps a host or peer failure
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotSupported checks if an error reports a missing capability
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsUnavailable checks if an error means the transport cannot work at all
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
