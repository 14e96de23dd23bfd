package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past deploy runs from the run journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}

			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if journal == nil {
				return &CommandError{
					Op:       "history",
					Err:      fmt.Errorf("journaling is disabled (journal.dsn is empty)"),
					ExitCode: ExitConfigError,
				}
			}
			defer journal.Close()

			runs, err := journal.ListRuns(cmd.Context(), limit)
			if err != nil {
				return &CommandError{Op: "history", Err: err, ExitCode: ExitJournalError}
			}

			if len(runs) == 0 {
				fmt.Println("no deploy runs recorded")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %-26s %-10s %s (%s)\n",
					run.StartedAt.Format(time.RFC3339),
					run.Target,
					run.Outcome,
					run.ID,
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
				if showSteps {
					for _, step := range run.Steps {
						line := fmt.Sprintf("    %-10s %-8s", step.StepID, step.Status)
						if step.Error != "" {
							line += " " + step.Error
						} else if step.Reason != "" {
							line += " " + step.Reason
						}
						fmt.Println(line)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Also list per-step results")
	return cmd
}
