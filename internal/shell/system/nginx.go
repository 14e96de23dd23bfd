package system

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/capdeploy/internal/core/render"
	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Reverse Proxy Vhost Installation
// =============================================================================

// ProxyManager installs the nginx server block for the application and
// reloads nginx. Like the service unit, the vhost is rewritten on every
// run from a deterministic template.
type ProxyManager struct {
	host     host.Host
	logger   *slog.Logger
	siteName string
	spec     render.VhostSpec
}

// NewProxyManager creates a proxy manager.
func NewProxyManager(h host.Host, siteName string, spec render.VhostSpec, logger *slog.Logger) *ProxyManager {
	return &ProxyManager{host: h, logger: logger, siteName: siteName, spec: spec}
}

// SitePath returns the sites-available config location.
func (p *ProxyManager) SitePath() string {
	return "/etc/nginx/sites-available/" + p.siteName
}

// Install writes the vhost, links it into sites-enabled, validates the
// nginx configuration, and reloads nginx. Validation before reload keeps a
// rendering bug from taking down vhosts that already work.
func (p *ProxyManager) Install(ctx context.Context) error {
	content := render.Vhost(p.spec)
	if err := p.host.WriteFile(ctx, p.SitePath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write vhost: %w", err)
	}

	enabled := "/etc/nginx/sites-enabled/" + p.siteName
	if _, err := p.host.Run(ctx, "ln", "-sf", p.SitePath(), enabled); err != nil {
		return fmt.Errorf("enable vhost: %w", err)
	}

	if _, err := p.host.Run(ctx, "nginx", "-t"); err != nil {
		return fmt.Errorf("nginx config validation: %w", err)
	}

	if _, err := p.host.Run(ctx, "systemctl", "reload", "nginx"); err != nil {
		return fmt.Errorf("reload nginx: %w", err)
	}

	p.logger.Info("reverse proxy vhost installed", "site", p.siteName)
	return nil
}
