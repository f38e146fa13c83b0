package table

import "fmt"

// ResolutionError reports a failed traversal of the backing graph store.
// It aborts the whole computation; no partial table is ever returned.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("table: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
