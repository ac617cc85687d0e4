// Package griderr defines the error kinds surfaced by the grid engine.
// Callers classify failures with errors.Is / errors.As; the HTTP layer maps
// them onto status codes.
package griderr

import (
	"errors"
	"fmt"
)

var (
	// ErrViewNotFound is returned when a view id does not resolve.
	ErrViewNotFound = errors.New("view not found")
	// ErrTableNotFound is returned when a table id does not resolve.
	ErrTableNotFound = errors.New("table not found")
	// ErrBaseNotFound is returned when a base id does not resolve.
	ErrBaseNotFound = errors.New("base not found")
	// ErrColumnNotFound is returned when a column id does not resolve.
	ErrColumnNotFound = errors.New("column not found")
	// ErrRowNotFound is returned when a row id does not resolve.
	ErrRowNotFound = errors.New("row not found")
	// ErrCellNotFound is returned when a cell id does not resolve.
	ErrCellNotFound = errors.New("cell not found")

	// ErrInvalidFilterCondition is returned when a stored or submitted
	// filter uses an unrecognized operator. Compilation is all-or-nothing:
	// one bad clause aborts the whole request rather than silently showing
	// more rows than the stated filter implies.
	ErrInvalidFilterCondition = errors.New("invalid filter condition")

	// ErrInvalidCursor is returned when a page cursor cannot be decoded or
	// no longer matches the view's current filter and sort state.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrMissingRequiredField is returned when a request payload omits a
	// required key.
	ErrMissingRequiredField = errors.New("missing required field")
)

// StorageError wraps a storage-layer failure (connection loss, constraint
// violation). The engine does not retry; retry policy belongs to the caller
// since retrying a non-idempotent write could duplicate data.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for operation op. Returns nil when
// err is nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// NotFound reports whether err is any of the entity-missing kinds.
func NotFound(err error) bool {
	return errors.Is(err, ErrViewNotFound) ||
		errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrBaseNotFound) ||
		errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrRowNotFound) ||
		errors.Is(err, ErrCellNotFound)
}
