package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/capdeploy/internal/core/render"
	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Service Unit Registration
// =============================================================================

// UnitManager owns the systemd service unit. Registration always rewrites
// the unit file: a redeploy restarts the service with the freshly rendered
// definition regardless of what was there before. Rendering is
// deterministic, so consecutive runs write byte-identical files.
type UnitManager struct {
	host     host.Host
	logger   *slog.Logger
	unitName string
	spec     render.UnitSpec
}

// UnitStatus is the supervisor's view of the unit for the activation report.
type UnitStatus struct {
	Enabled    bool
	Active     bool
	StatusText string
}

// NewUnitManager creates a unit manager.
func NewUnitManager(h host.Host, unitName string, spec render.UnitSpec, logger *slog.Logger) *UnitManager {
	return &UnitManager{host: h, logger: logger, unitName: unitName, spec: spec}
}

// UnitPath returns the unit file location.
func (u *UnitManager) UnitPath() string {
	return "/etc/systemd/system/" + u.unitName + ".service"
}

// Install rewrites the unit file, reloads the unit cache, enables the unit
// for boot-start, and restarts it.
func (u *UnitManager) Install(ctx context.Context) error {
	content := render.UnitFile(u.spec)
	if err := u.host.WriteFile(ctx, u.UnitPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if _, err := u.host.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if _, err := u.host.Run(ctx, "systemctl", "enable", u.unitName); err != nil {
		return fmt.Errorf("enable unit: %w", err)
	}
	if _, err := u.host.Run(ctx, "systemctl", "restart", u.unitName); err != nil {
		return fmt.Errorf("restart unit: %w", err)
	}

	u.logger.Info("service unit registered", "unit", u.unitName)
	return nil
}

// Status queries the supervisor for the unit's enabled and active state.
// systemctl exits non-zero for disabled/inactive units, so command errors
// with output are interpreted rather than propagated.
func (u *UnitManager) Status(ctx context.Context) (UnitStatus, error) {
	var status UnitStatus

	result, err := u.host.Run(ctx, "systemctl", "is-enabled", u.unitName)
	if err != nil && !isExitError(err) {
		return status, fmt.Errorf("query enabled state: %w", err)
	}
	status.Enabled = strings.TrimSpace(result.Stdout) == "enabled"

	result, err = u.host.Run(ctx, "systemctl", "is-active", u.unitName)
	if err != nil && !isExitError(err) {
		return status, fmt.Errorf("query active state: %w", err)
	}
	status.Active = strings.TrimSpace(result.Stdout) == "active"

	// Full status text is informational; exit status 3 (inactive) still
	// produces useful output.
	result, err = u.host.Run(ctx, "systemctl", "status", "--no-pager", u.unitName)
	if err != nil && !isExitError(err) {
		return status, fmt.Errorf("query unit status: %w", err)
	}
	status.StatusText = strings.TrimSpace(result.Stdout)

	return status, nil
}

func isExitError(err error) bool {
	var cmdErr *host.CommandError
	return errors.As(err, &cmdErr)
}
