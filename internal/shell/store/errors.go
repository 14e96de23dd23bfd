package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("run not found")

	// ErrDuplicateID is returned when recording a run with an existing ID.
	ErrDuplicateID = errors.New("run with this ID already exists")

	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrTxFailed is returned when a transaction operation fails.
	ErrTxFailed = errors.New("transaction failed")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op      string // operation that failed (e.g. "RecordRun")
	RunID   string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.RunID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, runID, message string, err error) *StoreError {
	return &StoreError{Op: op, RunID: runID, Message: message, Err: err}
}
