// Package mearec stores multi-channel electrophysiology recordings in an
// append-only chunked container that one writer can extend while other
// processes read the already published part.
package mearec

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidFormat: the file exists but is not a recording container.
	ErrInvalidFormat = errors.New("not a recording file")

	// ErrCorruptRecording: the container is valid but a mandatory attribute,
	// the sample dataset or its index is missing or unreadable.
	ErrCorruptRecording = errors.New("corrupt recording")

	// ErrRange: a channel or sample range lies outside the current extent.
	ErrRange = errors.New("range out of bounds")

	// ErrReadOnly: a write was attempted through a read-only handle.
	ErrReadOnly = errors.New("recording is read-only")

	// ErrAttributeAccess: an optional attribute could not be read or written.
	ErrAttributeAccess = errors.New("attribute access failed")

	ErrNotFound        = errors.New("not found")
	ErrClosed          = errors.New("recording is closed")
	ErrTypeMismatch    = errors.New("sample type mismatch")
	ErrNoConfiguration = errors.New("recording has no electrode configuration")
)

// RangeError reports a rejected channel or sample range. It matches ErrRange
// with errors.Is.
type RangeError struct {
	Axis       string
	Start, End uint64
	Limit      uint64
}

func (e *RangeError) Error() string {
	if e.End <= e.Start {
		return fmt.Sprintf("%s range [%d, %d) is empty or reversed", e.Axis, e.Start, e.End)
	}
	return fmt.Sprintf("%s range [%d, %d) exceeds extent %d", e.Axis, e.Start, e.End, e.Limit)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptRecording, fmt.Sprintf(format, args...))
}
