package memory

import "errors"

var (
	// ErrNoteNotFound is returned by archive lookups for an unknown note key.
	ErrNoteNotFound = errors.New("note not found")
)
