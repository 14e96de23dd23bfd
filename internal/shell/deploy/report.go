package deploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/shell/store"
)

// =============================================================================
// Run Report
// =============================================================================

// Report is the result of one deploy run.
type Report struct {
	RunID      string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []plan.StepResult
	Outcome    plan.Outcome
	Activation *Activation
}

// Render formats the report for the operator's console. The admin key is
// printed deliberately: this is the bootstrap handoff of the generated
// credential.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "deploy %s on %s: %s (%s)\n",
		shortID(r.RunID), r.Target, r.Outcome, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	for _, res := range r.Results {
		fmt.Fprintf(&b, "  %-10s %-8s", res.ID, res.Status)
		switch {
		case res.Err != "":
			fmt.Fprintf(&b, " %s", res.Err)
		case res.Reason != "":
			fmt.Fprintf(&b, " %s", res.Reason)
		case res.Status == plan.StatusApplied:
			fmt.Fprintf(&b, " %s", res.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n")
	}

	if a := r.Activation; a != nil {
		fmt.Fprintf(&b, "unit: enabled=%t active=%t\n", a.Unit.Enabled, a.Unit.Active)
		if a.AdminKey != "" {
			fmt.Fprintf(&b, "admin key: %s\n", a.AdminKey)
		}
		if a.ProbeErr != "" {
			fmt.Fprintf(&b, "probe: %s\n", a.ProbeErr)
		}
	}

	return b.String()
}

// journalRun converts the report into its persisted form.
func (r *Report) journalRun() *store.DeployRun {
	run := &store.DeployRun{
		ID:         r.RunID,
		Target:     r.Target,
		Outcome:    string(r.Outcome),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, res := range r.Results {
		run.Steps = append(run.Steps, store.StepRecord{
			StepID:     string(res.ID),
			Status:     string(res.Status),
			Severity:   string(res.Severity),
			Reason:     res.Reason,
			Error:      res.Err,
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	return run
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
