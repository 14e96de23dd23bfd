package system

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Runtime Environment Setup
// =============================================================================

// RuntimeEnv creates the isolated Python environment and installs the
// application's dependencies from its requirements manifest. The step runs
// unconditionally on every deploy; venv creation and pip install both
// converge to the same end state when repeated.
type RuntimeEnv struct {
	host         host.Host
	logger       *slog.Logger
	appDir       string
	python       string // interpreter used to create the venv
	requirements string // manifest filename relative to appDir
}

// NewRuntimeEnv creates a runtime environment executor.
func NewRuntimeEnv(h host.Host, appDir, python, requirements string, logger *slog.Logger) *RuntimeEnv {
	return &RuntimeEnv{
		host:         h,
		logger:       logger,
		appDir:       appDir,
		python:       python,
		requirements: requirements,
	}
}

// VenvDir returns the virtualenv root under the app directory.
func (r *RuntimeEnv) VenvDir() string {
	return path.Join(r.appDir, "venv")
}

// Setup validates the requirements manifest, creates the virtualenv, and
// installs dependencies. A missing manifest fails the step up front instead
// of surfacing as an opaque pip error mid-run.
func (r *RuntimeEnv) Setup(ctx context.Context) error {
	manifest := path.Join(r.appDir, r.requirements)
	exists, err := r.host.Exists(ctx, manifest)
	if err != nil {
		return fmt.Errorf("check requirements manifest: %w", err)
	}
	if !exists {
		return fmt.Errorf("requirements manifest %s not found; copy the application into %s first", manifest, r.appDir)
	}

	if _, err := r.host.Run(ctx, r.python, "-m", "venv", r.VenvDir()); err != nil {
		return fmt.Errorf("create virtualenv: %w", err)
	}

	pip := path.Join(r.VenvDir(), "bin", "pip")
	if _, err := r.host.Run(ctx, pip, "install", "-r", manifest); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	r.logger.Debug("runtime environment ready", "venv", r.VenvDir())
	return nil
}
