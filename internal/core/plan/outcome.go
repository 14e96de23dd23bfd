package plan

// =============================================================================
// Run Gating and Aggregation
// =============================================================================

// Blocked reports whether a step must not run given the results so far.
// A step is blocked when any of its dependencies failed or was itself
// blocked. Advisory failures do not block dependents: the original
// procedure kept going past a broken package install, and a re-run is the
// recovery path either way.
//
// The engine additionally blocks every remaining step after a fatal
// failure regardless of dependencies; that global abort lives in the shell
// because it depends on execution order, not graph shape.
func Blocked(step Step, results map[StepID]StepResult) (bool, string) {
	for _, dep := range step.DependsOn {
		r, ok := results[dep]
		if !ok {
			continue
		}
		switch {
		case r.Status == StatusFailed && r.Severity == SeverityFatal:
			return true, "dependency " + string(dep) + " failed"
		case r.Status == StatusBlocked:
			return true, "dependency " + string(dep) + " did not run"
		}
	}
	return false, ""
}

// Aggregate reduces step results to a run outcome.
// Any fatal failure means the run failed; advisory failures alone degrade
// it; otherwise the host converged.
func Aggregate(results []StepResult) Outcome {
	degraded := false
	for _, r := range results {
		if r.Status == StatusFailed {
			if r.Severity == SeverityFatal {
				return OutcomeFailed
			}
			degraded = true
		}
		if r.Status == StatusBlocked {
			// Blocked steps only occur after a fatal failure
			return OutcomeFailed
		}
	}
	if degraded {
		return OutcomeDegraded
	}
	return OutcomeConverged
}
