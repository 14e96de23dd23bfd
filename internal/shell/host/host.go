// Package host abstracts the deploy target: a machine on which commands
// run and files are written. Two implementations exist, one for the local
// machine and one for a remote host over SSH, so the same step executors
// serve both targets.
package host

import (
	"context"
	"fmt"
	"io/fs"
)

// =============================================================================
// Host Interface
// =============================================================================

// CommandResult captures the output of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Host is the execution surface the step executors run against.
type Host interface {
	// Run executes a command and waits for it. A non-zero exit status is
	// returned as a *CommandError wrapping the result.
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)

	// WriteFile writes data to path with the given mode, creating parent
	// directories as needed. Existing content is replaced.
	WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error

	// ReadFile returns the contents of path.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// String identifies the target for logs and the run journal.
	String() string

	// Close releases any connection held to the target.
	Close() error
}

// =============================================================================
// Errors
// =============================================================================

// CommandError is returned when a command exits non-zero.
type CommandError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q exited %d: %s", e.Cmd, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command %q exited %d", e.Cmd, e.ExitCode)
}
