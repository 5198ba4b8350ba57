package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnsupported marks operations the backend refuses outright (e.g. import).
	ErrUnsupported = errors.New("unsupported")
)

// ValidationError reports a caller-supplied voucher intent or account input
// missing a required field or violating a per-type precondition. It is raised
// before any persistence attempt; no partial state exists when it surfaces.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validation constructs a ValidationError for a field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError reports a missing structural dependency, such as the
// opening balance reserve account being absent when a contra entry is needed.
// The whole operation aborts; the contra entry is never silently dropped.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// Phases of a posting operation, recorded on PersistenceError so a partial
// failure can be diagnosed.
const (
	PhaseHeaderInsert  = "header_insert"
	PhaseEntriesInsert = "entries_insert"
	PhaseDeleteEntries = "delete_entries"
	PhaseDeleteHeader  = "delete_header"
	PhaseAccountInsert = "account_insert"
	PhaseAccountDelete = "account_delete"
	PhaseCommit        = "commit"
)

// PersistenceError wraps a store failure with the phase it occurred in.
// Callers must treat it as "operation did not complete"; there is no
// automatic retry.
type PersistenceError struct {
	Phase string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence (%s): %v", e.Phase, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err with the phase it occurred in.
func Persistence(phase string, err error) *PersistenceError {
	return &PersistenceError{Phase: phase, Err: err}
}
