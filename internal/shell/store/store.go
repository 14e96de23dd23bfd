// Package store persists the deploy run journal.
//
// The shell scripts this tool replaces left no record beyond terminal
// scrollback; the journal keeps per-step results for every run so an
// operator can see when a host last converged and which step broke it.
package store

import (
	"context"
	"time"
)

// =============================================================================
// Journal Interface
// =============================================================================

// Journal defines the persistence interface for deploy runs.
type Journal interface {
	// RecordRun stores a finished run with its step results.
	RecordRun(ctx context.Context, run *DeployRun) error

	// GetRun returns a run and its steps by ID.
	GetRun(ctx context.Context, id string) (*DeployRun, error)

	// ListRuns returns the most recent runs, newest first, without steps.
	ListRuns(ctx context.Context, limit int) ([]DeployRun, error)

	// Lifecycle
	Close() error
}

// =============================================================================
// Records
// =============================================================================

// DeployRun is one execution of the deploy procedure.
type DeployRun struct {
	ID         string    `db:"id"`
	Target     string    `db:"target"` // "local" or user@host:port
	Outcome    string    `db:"outcome"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`

	Steps []StepRecord `db:"-"`
}

// StepRecord is the journaled result of one step within a run.
type StepRecord struct {
	RunID      string `db:"run_id"`
	Seq        int    `db:"seq"` // execution order within the run
	StepID     string `db:"step_id"`
	Status     string `db:"status"`
	Severity   string `db:"severity"`
	Reason     string `db:"reason"`
	Error      string `db:"error"`
	DurationMS int64  `db:"duration_ms"`
}
