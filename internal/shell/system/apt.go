package system

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Package Installation
// =============================================================================

// PackageInstaller installs OS packages via apt-get. Installation is
// additive only; nothing is ever removed. Reinstalling an installed
// package is a no-op, so the step is idempotent.
type PackageInstaller struct {
	host     host.Host
	logger   *slog.Logger
	packages []string
}

// NewPackageInstaller creates a package installer for the given package set.
func NewPackageInstaller(h host.Host, packages []string, logger *slog.Logger) *PackageInstaller {
	return &PackageInstaller{host: h, logger: logger, packages: packages}
}

// Install refreshes the package index and installs each package. Per-package
// failures are collected rather than aborting: the plan marks this step
// advisory, so a broken mirror degrades the run instead of stopping it.
func (p *PackageInstaller) Install(ctx context.Context) error {
	if _, err := p.host.Run(ctx, "apt-get", "update", "-y"); err != nil {
		p.logger.Warn("package index refresh failed", "error", err)
	}

	var failed []string
	for _, pkg := range p.packages {
		if _, err := p.host.Run(ctx, "apt-get", "install", "-y", pkg); err != nil {
			p.logger.Warn("package install failed", "package", pkg, "error", err)
			failed = append(failed, pkg)
			continue
		}
		p.logger.Debug("package installed", "package", pkg)
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to install packages: %s", strings.Join(failed, ", "))
	}
	return nil
}
