package editor

import "errors"

// Common errors for editor operations.
var (
	// ErrReadOnly is returned when a mutating operation is attempted on a
	// read-only document.
	ErrReadOnly = errors.New("document is read-only")

	// ErrTooLarge is returned while an oversized document is pending
	// explicit acceptance. It marks a guarded state, not a failure.
	ErrTooLarge = errors.New("document exceeds the configured size threshold")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("editor is closed")

	// ErrNoLargeDocument is returned by Accept/DiscardLargeDocument when
	// no oversized document is pending.
	ErrNoLargeDocument = errors.New("no oversized document is pending")
)
