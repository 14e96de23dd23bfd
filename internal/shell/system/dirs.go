package system

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Application Directory Provisioning
// =============================================================================

// DirProvisioner creates the application directory and applies ownership.
// Creation happens at most once; ownership is re-applied on every run so a
// drifted host converges back.
type DirProvisioner struct {
	host   host.Host
	logger *slog.Logger
	dir    string
	owner  string
	group  string
}

// NewDirProvisioner creates a directory provisioner.
func NewDirProvisioner(h host.Host, dir, owner, group string, logger *slog.Logger) *DirProvisioner {
	return &DirProvisioner{host: h, logger: logger, dir: dir, owner: owner, group: group}
}

// Ensure creates the directory if absent and re-applies ownership.
func (d *DirProvisioner) Ensure(ctx context.Context) error {
	if _, err := d.host.Run(ctx, "mkdir", "-p", d.dir); err != nil {
		return fmt.Errorf("create %s: %w", d.dir, err)
	}
	if _, err := d.host.Run(ctx, "chown", "-R", d.owner+":"+d.group, d.dir); err != nil {
		return fmt.Errorf("chown %s: %w", d.dir, err)
	}
	d.logger.Debug("application directory provisioned", "dir", d.dir, "owner", d.owner)
	return nil
}
