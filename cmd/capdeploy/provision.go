package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/capdeploy/internal/shell/provider"
)

func newProvisionCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create or destroy the cloud host a deploy targets",
	}

	cmd.AddCommand(
		newProvisionCreateCmd(configPath),
		newProvisionDestroyCmd(configPath),
		newProvisionRegionsCmd(configPath),
		newProvisionSizesCmd(configPath),
	)
	return cmd
}

// openProvider builds the configured cloud provider client.
func openProvider(cfg *Config, logger *slog.Logger) (provider.Provider, error) {
	if cfg.Provider.Type == "" {
		return nil, &CommandError{
			Op:       "openProvider",
			Err:      fmt.Errorf("provider.type is required (aws|digitalocean|hetzner)"),
			ExitCode: ExitConfigError,
		}
	}
	if cfg.Provider.CredentialsFile == "" {
		return nil, &CommandError{
			Op:       "openProvider",
			Err:      fmt.Errorf("provider.credentials_file is required"),
			ExitCode: ExitConfigError,
		}
	}

	credJSON, err := os.ReadFile(cfg.Provider.CredentialsFile)
	if err != nil {
		return nil, &CommandError{
			Op:       "openProvider",
			Err:      fmt.Errorf("read credentials file: %w", err),
			ExitCode: ExitConfigError,
		}
	}

	p, err := provider.NewProvider(cfg.Provider.Type, credJSON, logger)
	if err != nil {
		return nil, &CommandError{Op: "openProvider", Err: err, ExitCode: ExitConfigError}
	}
	return p, nil
}

func newProvisionCreateCmd(configPath *string) *cobra.Command {
	var name, region, size, pubKeyFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cloud host bootstrapped for deployment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			p, err := openProvider(cfg, logger)
			if err != nil {
				return err
			}

			pubKey, err := os.ReadFile(pubKeyFile)
			if err != nil {
				return &CommandError{
					Op:       "provision create",
					Err:      fmt.Errorf("read SSH public key: %w", err),
					ExitCode: ExitConfigError,
				}
			}

			result, err := p.CreateHost(cmd.Context(), provider.ProvisionRequest{
				HostName:     name,
				Region:       region,
				Size:         size,
				SSHPublicKey: string(pubKey),
			})
			if err != nil {
				return &CommandError{Op: "provision create", Err: err, ExitCode: ExitProviderError}
			}

			fmt.Printf("host created: id=%s ip=%s\n", result.ProviderInstanceID, result.PublicIP)
			fmt.Printf("deploy with: CAPDEPLOY_TARGET_KIND=ssh CAPDEPLOY_TARGET_HOST=%s capdeploy deploy\n", result.PublicIP)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Host name (required)")
	cmd.Flags().StringVar(&region, "region", "", "Provider region (required)")
	cmd.Flags().StringVar(&size, "size", "", "Instance size/type (required)")
	cmd.Flags().StringVar(&pubKeyFile, "ssh-public-key", "", "Path to SSH public key to install (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("ssh-public-key")
	return cmd
}

func newProvisionDestroyCmd(configPath *string) *cobra.Command {
	var id, name, region string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy a cloud host and its associated resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			p, err := openProvider(cfg, logger)
			if err != nil {
				return err
			}

			err = p.DestroyHost(cmd.Context(), provider.DestroyRequest{
				ProviderInstanceID: id,
				HostName:           name,
				Region:             region,
			})
			if err != nil {
				return &CommandError{Op: "provision destroy", Err: err, ExitCode: ExitProviderError}
			}

			fmt.Printf("host destroyed: id=%s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Provider instance ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Host name used at creation (required)")
	cmd.Flags().StringVar(&region, "region", "", "Provider region (AWS only)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProvisionRegionsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List available provider regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			p, err := openProvider(cfg, logger)
			if err != nil {
				return err
			}

			regions, err := p.ListRegions(cmd.Context())
			if err != nil {
				return &CommandError{Op: "provision regions", Err: err, ExitCode: ExitProviderError}
			}

			for _, r := range regions {
				fmt.Printf("%-16s %s\n", r.ID, r.Name)
			}
			return nil
		},
	}
}

func newProvisionSizesCmd(configPath *string) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "List available host sizes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			p, err := openProvider(cfg, logger)
			if err != nil {
				return err
			}

			sizes, err := p.ListSizes(cmd.Context(), region)
			if err != nil {
				return &CommandError{Op: "provision sizes", Err: err, ExitCode: ExitProviderError}
			}

			for _, s := range sizes {
				fmt.Printf("%-16s %-28s $%.4f/h\n", s.ID, s.Name, s.PriceHourly)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Filter sizes by region")
	return cmd
}
