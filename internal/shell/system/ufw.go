package system

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Firewall Rule Application
// =============================================================================

// Firewall applies ufw allow rules. Rule application is strictly additive
// and monotonic: re-adding an existing rule is a no-op and nothing is ever
// removed, so the allow set after run N is always a superset of run N-1.
type Firewall struct {
	host   host.Host
	logger *slog.Logger
	rules  []string
}

// NewFirewall creates a firewall executor for the given allow rules.
// Rules are ufw arguments: a profile name ("OpenSSH", "Nginx Full") or a
// port spec ("8000/tcp").
func NewFirewall(h host.Host, rules []string, logger *slog.Logger) *Firewall {
	return &Firewall{host: h, logger: logger, rules: rules}
}

// Allow applies each rule, collecting per-rule failures.
func (f *Firewall) Allow(ctx context.Context) error {
	var failed []string
	for _, rule := range f.rules {
		if _, err := f.host.Run(ctx, "ufw", "allow", rule); err != nil {
			f.logger.Warn("firewall rule failed", "rule", rule, "error", err)
			failed = append(failed, rule)
			continue
		}
		f.logger.Debug("firewall rule applied", "rule", rule)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to apply firewall rules: %s", strings.Join(failed, ", "))
	}
	return nil
}
