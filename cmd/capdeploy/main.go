package main

import (
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitJournalError  = 2
	ExitHostError     = 3
	ExitDeployFailed  = 4
	ExitProviderError = 5
)

// CommandError carries an operation name and a process exit code across the
// command boundary.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		if cErr, ok := err.(*CommandError); ok {
			fmt.Fprintf(os.Stderr, "capdeploy: %v\n", cErr)
			return cErr.ExitCode
		}
		fmt.Fprintf(os.Stderr, "capdeploy: %v\n", err)
		return ExitConfigError
	}

	return ExitSuccess
}
