package roster

import (
	"errors"
	"fmt"
)

var (
	// ErrMutationFailed marks an optimistic update that the backend rejected or never
	// acknowledged. The local record has already been rolled back when it is returned.
	ErrMutationFailed = errors.New("mutation failed")
	ErrNotFound       = errors.New("not in roster")
)

// MutationError reports a rolled-back mutation. It matches both ErrMutationFailed and
// the underlying transport error with errors.Is.
type MutationError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %d: %v: %v", e.Entity, e.ID, ErrMutationFailed, e.Err)
}

func (e *MutationError) Unwrap() []error {
	return []error{ErrMutationFailed, e.Err}
}
