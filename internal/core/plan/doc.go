// Package plan provides pure functions for deployment step planning.
//
// This package contains the functional core logic for turning a desired
// host configuration into an ordered, dependency-checked sequence of
// convergence steps. All functions are pure (no I/O, no side effects).
//
// # Concepts
//
//   - Step: one external-state mutation (packages, app dir, runtime env,
//     secrets, service unit, proxy vhost, firewall, activation)
//   - Class: the step's idempotence class. Create-once steps are gated on
//     resource existence and never overwrite; always-converge steps are
//     re-applied unconditionally on every run.
//   - Severity: fatal steps abort the run on failure; advisory steps only
//     degrade the run outcome.
//
// # Usage
//
// The imperative shell (internal/shell/deploy) orders the steps, executes
// them, and feeds the results back into the pure aggregation functions.
//
//	steps := plan.Order(plan.Build(opts))
//	outcome := plan.Aggregate(results)
package plan
