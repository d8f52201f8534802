/*
errors.go - Error types for roster normalization

ERROR CATEGORIES:
  1. Parse warnings - a cell, date or row could not be parsed. These are
     NEVER returned: the value degrades to an empty cell and processing
     continues.
  2. Structural errors - the grid cannot be reshaped at all (no usable
     columns). Fatal to one file, returned to the caller.

USAGE:
  records, err := roster.Normalize(grid, filename)
  if roster.IsStructural(err) {
      // report this file, continue with the next one
  }
*/
package roster

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStructural is the parent of every structural failure.
	ErrStructural = errors.New("structurally unusable roster")

	// ErrNoColumns is returned when the grid has no columns beyond the
	// leading marker column.
	ErrNoColumns = errors.New("grid has no data columns")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StructuralError reports why a file's grid could not be reshaped.
type StructuralError struct {
	Filename string
	Reason   error
}

func (e *StructuralError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%v: %v", ErrStructural, e.Reason)
	}
	return fmt.Sprintf("%v %q: %v", ErrStructural, e.Filename, e.Reason)
}

func (e *StructuralError) Unwrap() []error {
	return []error{ErrStructural, e.Reason}
}

// IsStructural returns true if err means the file itself is unusable.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}
