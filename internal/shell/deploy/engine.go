// Package deploy executes the deployment plan against a host.
//
// The engine walks the ordered steps, runs each executor, and applies the
// failure policy: fatal failures abort the run and block everything after
// them, advisory failures degrade the outcome and continue. There is no
// rollback; re-running the procedure is the recovery path and each step is
// safe to re-apply.
package deploy

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/core/render"
	"github.com/artpar/capdeploy/internal/shell/host"
	"github.com/artpar/capdeploy/internal/shell/store"
	"github.com/artpar/capdeploy/internal/shell/system"
)

// =============================================================================
// Engine
// =============================================================================

// StepFunc executes one step and reports its status. The reason string
// carries detail for skipped steps.
type StepFunc func(ctx context.Context) (plan.Status, string, error)

// Engine runs an ordered deployment plan.
type Engine struct {
	steps      []plan.Step
	funcs      map[plan.StepID]StepFunc
	journal    store.Journal // nil disables journaling
	target     string
	logger     *slog.Logger
	now        func() time.Time
	activation *Activation
}

// Activation is the operator-facing state collected by the final step.
type Activation struct {
	Unit     system.UnitStatus
	AdminKey string
	ProbeErr string // empty when the probe passed or was disabled
}

// Params configures a deployment engine.
type Params struct {
	Host    host.Host
	Journal store.Journal // optional
	Logger  *slog.Logger
	Rand    io.Reader // entropy for key generation; defaults to crypto/rand

	AppName       string // unit and vhost name
	AppDir        string
	Owner         string
	Group         string
	Packages      []string
	Python        string
	Requirements  string
	SecretPath    string
	APIKey        string
	AdminKeyBytes int

	Unit render.UnitSpec

	ManageProxy bool
	Vhost       render.VhostSpec

	ManageFirewall bool
	FirewallRules  []string

	ProbeURL     string // empty disables the HTTP probe
	ProbeTimeout time.Duration
}

// NewEngine wires executors for every planned step.
func NewEngine(p Params) *Engine {
	if p.Rand == nil {
		p.Rand = rand.Reader
	}

	installer := system.NewPackageInstaller(p.Host, p.Packages, p.Logger)
	dirs := system.NewDirProvisioner(p.Host, p.AppDir, p.Owner, p.Group, p.Logger)
	runtime := system.NewRuntimeEnv(p.Host, p.AppDir, p.Python, p.Requirements, p.Logger)
	secretw := system.NewSecretWriter(p.Host, p.SecretPath, p.APIKey, p.AdminKeyBytes, p.Rand, p.Logger)
	unit := system.NewUnitManager(p.Host, p.AppName, p.Unit, p.Logger)
	firewall := system.NewFirewall(p.Host, p.FirewallRules, p.Logger)

	e := &Engine{
		steps: plan.Order(plan.Build(plan.Options{
			ManageProxy:    p.ManageProxy,
			ManageFirewall: p.ManageFirewall,
		})),
		funcs:   make(map[plan.StepID]StepFunc),
		journal: p.Journal,
		target:  p.Host.String(),
		logger:  p.Logger,
		now:     time.Now,
	}

	e.funcs[plan.StepPackages] = applyFunc(installer.Install)
	e.funcs[plan.StepAppDir] = applyFunc(dirs.Ensure)
	e.funcs[plan.StepRuntime] = applyFunc(runtime.Setup)
	e.funcs[plan.StepUnit] = applyFunc(unit.Install)
	e.funcs[plan.StepFirewall] = applyFunc(firewall.Allow)

	e.funcs[plan.StepSecrets] = func(ctx context.Context) (plan.Status, string, error) {
		created, err := secretw.Materialize(ctx)
		if err != nil {
			return plan.StatusFailed, "", err
		}
		if !created {
			return plan.StatusSkipped, "secret file already present", nil
		}
		return plan.StatusApplied, "", nil
	}

	if p.ManageProxy {
		proxy := system.NewProxyManager(p.Host, p.AppName, p.Vhost, p.Logger)
		e.funcs[plan.StepProxy] = applyFunc(proxy.Install)
	}

	var prober *system.Prober
	if p.ProbeURL != "" {
		prober = system.NewProber(p.ProbeURL, p.ProbeTimeout)
	}
	e.funcs[plan.StepActivate] = e.activateFunc(unit, secretw, prober)

	return e
}

func applyFunc(f func(context.Context) error) StepFunc {
	return func(ctx context.Context) (plan.Status, string, error) {
		if err := f(ctx); err != nil {
			return plan.StatusFailed, "", err
		}
		return plan.StatusApplied, "", nil
	}
}

// activateFunc builds the final step: query the supervisor, read back the
// admin key for operator capture, and optionally probe the service over
// HTTP. Partial information is still collected on failure so the report
// shows whatever state was reachable.
func (e *Engine) activateFunc(unit *system.UnitManager, secretw *system.SecretWriter, prober *system.Prober) StepFunc {
	return func(ctx context.Context) (plan.Status, string, error) {
		act := &Activation{}
		e.activation = act

		status, err := unit.Status(ctx)
		if err != nil {
			return plan.StatusFailed, "", err
		}
		act.Unit = status

		if key, err := secretw.ReadAdminKey(ctx); err != nil {
			e.logger.Warn("admin key readback failed", "error", err)
		} else {
			act.AdminKey = key
		}

		if !status.Enabled || !status.Active {
			return plan.StatusFailed, "", &notRunningError{enabled: status.Enabled, active: status.Active}
		}

		if prober != nil {
			if err := prober.Probe(ctx); err != nil {
				act.ProbeErr = err.Error()
				return plan.StatusFailed, "", err
			}
		}
		return plan.StatusApplied, "", nil
	}
}

type notRunningError struct {
	enabled, active bool
}

func (e *notRunningError) Error() string {
	switch {
	case !e.enabled && !e.active:
		return "unit is neither enabled nor active"
	case !e.enabled:
		return "unit is active but not enabled for boot-start"
	default:
		return "unit is enabled but not active"
	}
}

// =============================================================================
// Execution
// =============================================================================

// Run executes the plan. The returned report always covers every planned
// step; err is non-nil only for infrastructure problems, not for step
// failures, which are expressed through the report's outcome.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	// The activate step repopulates this; a rerun that never reaches it
	// must not report the previous run's state.
	e.activation = nil

	report := &Report{
		RunID:     uuid.NewString(),
		Target:    e.target,
		StartedAt: e.now(),
	}

	results := make(map[plan.StepID]plan.StepResult, len(e.steps))
	aborted := false

	for _, step := range e.steps {
		result := plan.StepResult{ID: step.ID, Severity: step.Severity}

		if aborted {
			result.Status = plan.StatusBlocked
			result.Reason = "run aborted after fatal failure"
		} else if blocked, reason := plan.Blocked(step, results); blocked {
			result.Status = plan.StatusBlocked
			result.Reason = reason
		} else {
			start := e.now()
			status, reason, err := e.funcs[step.ID](ctx)
			result.Status = status
			result.Reason = reason
			result.Duration = e.now().Sub(start)
			if err != nil {
				result.Err = err.Error()
			}
		}

		switch result.Status {
		case plan.StatusFailed:
			if step.Severity == plan.SeverityFatal {
				aborted = true
				e.logger.Error("step failed, aborting run", "step", step.ID, "error", result.Err)
			} else {
				e.logger.Warn("advisory step failed", "step", step.ID, "error", result.Err)
			}
		case plan.StatusBlocked:
			e.logger.Warn("step blocked", "step", step.ID, "reason", result.Reason)
		case plan.StatusSkipped:
			e.logger.Info("step skipped", "step", step.ID, "reason", result.Reason)
		default:
			e.logger.Info("step applied", "step", step.ID, "duration", result.Duration)
		}

		results[step.ID] = result
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = e.now()
	report.Outcome = plan.Aggregate(report.Results)
	report.Activation = e.activation

	if e.journal != nil {
		if err := e.journal.RecordRun(ctx, report.journalRun()); err != nil {
			// The deploy already happened; a journaling failure must not
			// turn a converged host into a reported failure.
			e.logger.Warn("failed to record run in journal", "error", err)
		}
	}

	return report, nil
}
