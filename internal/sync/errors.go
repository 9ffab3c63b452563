package sync

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another process holds the root lock
var ErrRunInProgress = errors.New("another sync run holds the lock")

// ItemError wraps the failure of one item with enough context to diagnose it
type ItemError struct {
	Index      int
	Source     string
	Repository string
	Err        error
}

// Error returns the error message
func (e *ItemError) Error() string {
	return fmt.Sprintf("item[%d] %s (repository %q): %v", e.Index, e.Source, e.Repository, e.Err)
}

// Unwrap returns the underlying error
func (e *ItemError) Unwrap() error {
	return e.Err
}
