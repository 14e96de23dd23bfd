package plan

import "time"

// =============================================================================
// Step Identity
// =============================================================================

// StepID identifies a deployment step.
type StepID string

const (
	StepPackages StepID = "packages"
	StepAppDir   StepID = "appdir"
	StepRuntime  StepID = "runtime"
	StepSecrets  StepID = "secrets"
	StepUnit     StepID = "unit"
	StepProxy    StepID = "proxy"
	StepFirewall StepID = "firewall"
	StepActivate StepID = "activate"
)

// =============================================================================
// Idempotence Classes
// =============================================================================

// Class is the idempotence class of a step's target resource.
type Class string

const (
	// ClassCreateOnce marks resources that are created exactly once and
	// never overwritten by a later run (the secret file).
	ClassCreateOnce Class = "create-once"

	// ClassConverge marks resources that are unconditionally re-applied on
	// every run and converge to the same end state (everything else).
	ClassConverge Class = "always-converge"
)

// =============================================================================
// Severity
// =============================================================================

// Severity determines how a step failure affects the rest of the run.
type Severity string

const (
	// SeverityFatal aborts the run: dependents and all later steps are
	// recorded as blocked.
	SeverityFatal Severity = "fatal"

	// SeverityAdvisory records the failure and continues.
	SeverityAdvisory Severity = "advisory"
)

// =============================================================================
// Step
// =============================================================================

// Step is a single planned external-state mutation.
type Step struct {
	ID        StepID
	Name      string
	Class     Class
	Severity  Severity
	DependsOn []StepID
}

// =============================================================================
// Results
// =============================================================================

// Status is the executed state of a step.
type Status string

const (
	// StatusApplied means the step ran and mutated (or re-applied) its resource.
	StatusApplied Status = "applied"

	// StatusSkipped means the step's create-once gate found the resource
	// already present and left it untouched. The step is satisfied.
	StatusSkipped Status = "skipped"

	// StatusFailed means the step ran and returned an error.
	StatusFailed Status = "failed"

	// StatusBlocked means the step did not run because a dependency failed
	// or an earlier fatal failure aborted the run.
	StatusBlocked Status = "blocked"
)

// StepResult records the outcome of executing one step.
type StepResult struct {
	ID       StepID
	Status   Status
	Severity Severity
	Reason   string // human-readable detail for skipped/blocked
	Err      string // error text for failed steps
	Duration time.Duration
}

// =============================================================================
// Run Outcome
// =============================================================================

// Outcome is the aggregate result of a deploy run.
type Outcome string

const (
	// OutcomeConverged means every step applied or was satisfied.
	OutcomeConverged Outcome = "converged"

	// OutcomeDegraded means only advisory steps failed; the service is
	// expected to be up but the host may need attention.
	OutcomeDegraded Outcome = "degraded"

	// OutcomeFailed means a fatal step failed and the run aborted.
	OutcomeFailed Outcome = "failed"
)
