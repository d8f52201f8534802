package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence is returned when the store rejects a file's records.
	ErrPersistence = errors.New("persistence failed")

	// ErrUnreadable is returned when a file cannot be decoded into a grid.
	ErrUnreadable = errors.New("unreadable spreadsheet")
)

// PersistenceError wraps a store failure for one file.
type PersistenceError struct {
	Filename string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("insert %q: %v", e.Filename, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsPersistence returns true if err came from the record store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
