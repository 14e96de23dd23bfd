package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/shell/deploy"
	"github.com/artpar/capdeploy/internal/shell/store"
)

func newDeployCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Converge the target host onto a running service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			if err := cfg.ValidateDeploy(); err != nil {
				return &CommandError{Op: "deploy", Err: err, ExitCode: ExitConfigError}
			}

			h, err := newTargetHost(cfg, logger)
			if err != nil {
				return err
			}
			defer h.Close()

			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			engine := deploy.NewEngine(deploy.Params{
				Host:    h,
				Journal: journal,
				Logger:  logger,

				AppName:       cfg.App.Name,
				AppDir:        cfg.App.Dir,
				Owner:         cfg.App.User,
				Group:         cfg.App.Group,
				Packages:      cfg.App.Packages,
				Python:        cfg.App.Python,
				Requirements:  cfg.App.Requirements,
				SecretPath:    cfg.SecretPath(),
				APIKey:        cfg.Secrets.APIKey,
				AdminKeyBytes: cfg.Secrets.AdminKeyBytes,

				Unit: cfg.UnitSpec(),

				ManageProxy: cfg.Proxy.Enabled,
				Vhost:       cfg.VhostSpec(),

				ManageFirewall: cfg.Firewall.Enabled,
				FirewallRules:  cfg.Firewall.Rules,

				ProbeURL:     cfg.Probe.URL,
				ProbeTimeout: cfg.Probe.Timeout,
			})

			report, err := engine.Run(cmd.Context())
			if err != nil {
				return &CommandError{Op: "deploy", Err: err, ExitCode: ExitHostError}
			}

			fmt.Fprint(os.Stdout, report.Render())

			if report.Outcome == plan.OutcomeFailed {
				return &CommandError{
					Op:       "deploy",
					Err:      fmt.Errorf("run %s failed", report.RunID),
					ExitCode: ExitDeployFailed,
				}
			}
			return nil
		},
	}
}

// openJournal opens the run journal, or returns nil when journaling is
// disabled by config.
func openJournal(cfg *Config) (store.Journal, error) {
	if cfg.Journal.DSN == "" {
		return nil, nil
	}
	journal, err := store.NewSQLiteJournal(cfg.Journal.DSN)
	if err != nil {
		return nil, &CommandError{Op: "openJournal", Err: err, ExitCode: ExitJournalError}
	}
	return journal, nil
}
