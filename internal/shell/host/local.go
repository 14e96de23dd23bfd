package host

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// =============================================================================
// Local Host
// =============================================================================

// Local runs commands on the local machine via os/exec. File operations go
// through an afero filesystem so tests can run the executors against an
// in-memory tree.
type Local struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewLocal creates a local host backed by the OS filesystem.
func NewLocal(logger *slog.Logger) *Local {
	return NewLocalWithFs(afero.NewOsFs(), logger)
}

// NewLocalWithFs creates a local host with an explicit filesystem.
func NewLocalWithFs(fsys afero.Fs, logger *slog.Logger) *Local {
	return &Local{fs: fsys, logger: logger}
}

// Run executes the command and captures its output.
func (h *Local) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &CommandError{
				Cmd:      name + " " + strings.Join(args, " "),
				ExitCode: result.ExitCode,
				Stderr:   strings.TrimSpace(result.Stderr),
			}
		}
		return result, err
	}
	return result, nil
}

// WriteFile writes data to path, creating parent directories.
func (h *Local) WriteFile(_ context.Context, path string, data []byte, perm fs.FileMode) error {
	if err := h.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(h.fs, path, data, perm)
}

// ReadFile returns the contents of path.
func (h *Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	return afero.ReadFile(h.fs, path)
}

// Exists reports whether path exists.
func (h *Local) Exists(_ context.Context, path string) (bool, error) {
	return afero.Exists(h.fs, path)
}

func (h *Local) String() string {
	return "local"
}

// Close is a no-op for the local host.
func (h *Local) Close() error {
	return nil
}
