package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/capdeploy/internal/shell/system"
)

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the supervisor state of the deployed unit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			h, err := newTargetHost(cfg, logger)
			if err != nil {
				return err
			}
			defer h.Close()

			unit := system.NewUnitManager(h, cfg.App.Name, cfg.UnitSpec(), logger)
			status, err := unit.Status(cmd.Context())
			if err != nil {
				return &CommandError{Op: "status", Err: err, ExitCode: ExitHostError}
			}

			fmt.Printf("%s on %s: enabled=%t active=%t\n",
				cfg.App.Name, targetLabel(cfg), status.Enabled, status.Active)
			if status.StatusText != "" {
				fmt.Println(status.StatusText)
			}

			if cfg.Probe.URL != "" {
				prober := system.NewProber(cfg.Probe.URL, cfg.Probe.Timeout)
				if err := prober.Probe(cmd.Context()); err != nil {
					fmt.Printf("probe %s: %v\n", cfg.Probe.URL, err)
				} else {
					fmt.Printf("probe %s: ok\n", cfg.Probe.URL)
				}
			}
			return nil
		},
	}
}
