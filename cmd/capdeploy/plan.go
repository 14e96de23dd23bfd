package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/core/render"
)

// planStep is the YAML-facing shape of a planned step.
type planStep struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Class     string   `yaml:"class"`
	Severity  string   `yaml:"severity"`
	DependsOn []string `yaml:"depends_on,omitempty"`
}

type planDoc struct {
	Target string     `yaml:"target"`
	Steps  []planStep `yaml:"steps"`
}

func newPlanCmd(configPath *string) *cobra.Command {
	var output string
	var showArtifacts bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the ordered step plan without touching the host",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, _, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			steps := plan.Order(plan.Build(plan.Options{
				ManageProxy:    cfg.Proxy.Enabled,
				ManageFirewall: cfg.Firewall.Enabled,
			}))

			switch output {
			case "yaml":
				if err := printPlanYAML(cfg, steps); err != nil {
					return &CommandError{Op: "plan", Err: err, ExitCode: ExitConfigError}
				}
			case "text", "":
				printPlanText(cfg, steps)
			default:
				return &CommandError{
					Op:       "plan",
					Err:      fmt.Errorf("unsupported output %q (expected text|yaml)", output),
					ExitCode: ExitConfigError,
				}
			}

			if showArtifacts {
				printArtifacts(cfg)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|yaml")
	cmd.Flags().BoolVar(&showArtifacts, "artifacts", false, "Also print the rendered unit and vhost files")
	return cmd
}

func printPlanYAML(cfg *Config, steps []plan.Step) error {
	doc := planDoc{Target: targetLabel(cfg)}
	for _, s := range steps {
		ps := planStep{
			ID:       string(s.ID),
			Name:     s.Name,
			Class:    string(s.Class),
			Severity: string(s.Severity),
		}
		for _, dep := range s.DependsOn {
			ps.DependsOn = append(ps.DependsOn, string(dep))
		}
		doc.Steps = append(doc.Steps, ps)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(doc)
}

func printPlanText(cfg *Config, steps []plan.Step) {
	fmt.Printf("plan for %s (%d steps):\n", targetLabel(cfg), len(steps))
	for i, s := range steps {
		deps := ""
		for j, dep := range s.DependsOn {
			if j > 0 {
				deps += ", "
			}
			deps += string(dep)
		}
		if deps == "" {
			deps = "-"
		}
		fmt.Printf("  %d. %-10s %-15s %-8s after: %s\n", i+1, s.ID, s.Class, s.Severity, deps)
	}
}

func printArtifacts(cfg *Config) {
	fmt.Printf("\n--- %s.service ---\n%s", cfg.App.Name, render.UnitFile(cfg.UnitSpec()))
	if cfg.Proxy.Enabled {
		fmt.Printf("\n--- nginx: %s ---\n%s", cfg.App.Name, render.Vhost(cfg.VhostSpec()))
	}
}

func targetLabel(cfg *Config) string {
	if cfg.Target.Kind == "ssh" {
		return fmt.Sprintf("%s@%s:%d", cfg.Target.User, cfg.Target.Host, cfg.Target.Port)
	}
	return "local"
}
