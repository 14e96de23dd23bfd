package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/capdeploy/internal/shell/host"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "capdeploy",
		Short:         "capdeploy converges a host onto a running, supervised API service",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	cmd.AddCommand(
		newDeployCmd(&configPath),
		newPlanCmd(&configPath),
		newStatusCmd(&configPath),
		newHistoryCmd(&configPath),
		newProvisionCmd(&configPath),
	)

	return cmd
}

// loadConfigAndLogger is the shared entry point of every subcommand.
func loadConfigAndLogger(configPath string) (*Config, *slog.Logger, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, &CommandError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
	}
	return cfg, SetupLogger(cfg), nil
}

// newTargetHost builds the Host implementation selected by config.
func newTargetHost(cfg *Config, logger *slog.Logger) (host.Host, error) {
	switch cfg.Target.Kind {
	case "", "local":
		return host.NewLocal(logger), nil

	case "ssh":
		if cfg.Target.Host == "" {
			return nil, &CommandError{
				Op:       "newTargetHost",
				Err:      fmt.Errorf("target.host is required for ssh targets"),
				ExitCode: ExitConfigError,
			}
		}
		key, err := readKeyFile(cfg.Target.KeyFile)
		if err != nil {
			return nil, &CommandError{Op: "newTargetHost", Err: err, ExitCode: ExitConfigError}
		}
		h, err := host.NewSSH(host.SSHConfig{
			Host:           cfg.Target.Host,
			Port:           cfg.Target.Port,
			User:           cfg.Target.User,
			PrivateKey:     key,
			CommandTimeout: cfg.Target.CommandTimeout,
			ConnectTimeout: cfg.Target.ConnectTimeout,
		}, logger)
		if err != nil {
			return nil, &CommandError{Op: "newTargetHost", Err: err, ExitCode: ExitHostError}
		}
		return h, nil

	default:
		return nil, &CommandError{
			Op:       "newTargetHost",
			Err:      fmt.Errorf("unknown target kind %q (expected local|ssh)", cfg.Target.Kind),
			ExitCode: ExitConfigError,
		}
	}
}

func readKeyFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("target.key_file is required for ssh targets")
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SSH key file: %w", err)
	}
	return key, nil
}
