package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJournal records the runs it is given.
type fakeJournal struct {
	runs []*store.DeployRun
	err  error
}

func (f *fakeJournal) RecordRun(_ context.Context, run *store.DeployRun) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeJournal) GetRun(context.Context, string) (*store.DeployRun, error) {
	return nil, store.ErrNotFound
}

func (f *fakeJournal) ListRuns(context.Context, int) ([]store.DeployRun, error) {
	return nil, nil
}

func (f *fakeJournal) Close() error { return nil }

func ok(plan.StepID) StepFunc {
	return func(context.Context) (plan.Status, string, error) {
		return plan.StatusApplied, "", nil
	}
}

func fail(err error) StepFunc {
	return func(context.Context) (plan.Status, string, error) {
		return plan.StatusFailed, "", err
	}
}

// testEngine builds an engine over a hand-rolled plan with injected funcs.
func testEngine(steps []plan.Step, funcs map[plan.StepID]StepFunc, journal store.Journal) *Engine {
	return &Engine{
		steps:   plan.Order(steps),
		funcs:   funcs,
		journal: journal,
		target:  "test",
		logger:  discardLogger(),
		now:     time.Now,
	}
}

// =============================================================================
// Engine Tests
// =============================================================================

func TestEngine_AllStepsApplied(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}

	report, err := testEngine(steps, funcs, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeConverged, report.Outcome)
	assert.Len(t, report.Results, len(steps))
	for _, r := range report.Results {
		assert.Equal(t, plan.StatusApplied, r.Status)
	}
}

func TestEngine_FatalFailureAbortsRemainingSteps(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}
	funcs[plan.StepRuntime] = fail(errors.New("pip install exploded"))

	report, err := testEngine(steps, funcs, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeFailed, report.Outcome)

	byID := resultsByID(report)
	assert.Equal(t, plan.StatusApplied, byID[plan.StepPackages].Status)
	assert.Equal(t, plan.StatusApplied, byID[plan.StepAppDir].Status)
	assert.Equal(t, plan.StatusFailed, byID[plan.StepRuntime].Status)

	// Everything after the fatal failure is blocked, dependents or not
	assert.Equal(t, plan.StatusBlocked, byID[plan.StepUnit].Status)
	assert.Equal(t, plan.StatusBlocked, byID[plan.StepFirewall].Status)
	assert.Equal(t, plan.StatusBlocked, byID[plan.StepActivate].Status)
}

func TestEngine_AdvisoryFailureContinues(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}
	funcs[plan.StepPackages] = fail(errors.New("mirror down"))

	report, err := testEngine(steps, funcs, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeDegraded, report.Outcome)

	byID := resultsByID(report)
	assert.Equal(t, plan.StatusFailed, byID[plan.StepPackages].Status)
	// appdir depends on packages, but the failure is advisory
	assert.Equal(t, plan.StatusApplied, byID[plan.StepAppDir].Status)
	assert.Equal(t, plan.StatusApplied, byID[plan.StepActivate].Status)
}

func TestEngine_SkippedSecretStepSatisfiesUnit(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}
	funcs[plan.StepSecrets] = func(context.Context) (plan.Status, string, error) {
		return plan.StatusSkipped, "secret file already present", nil
	}

	report, err := testEngine(steps, funcs, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeConverged, report.Outcome)

	byID := resultsByID(report)
	assert.Equal(t, plan.StatusSkipped, byID[plan.StepSecrets].Status)
	assert.Equal(t, plan.StatusApplied, byID[plan.StepUnit].Status)
}

func TestEngine_RecordsRunInJournal(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}

	journal := &fakeJournal{}
	report, err := testEngine(steps, funcs, journal).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, journal.runs, 1)
	run := journal.runs[0]
	assert.Equal(t, report.RunID, run.ID)
	assert.Equal(t, "converged", run.Outcome)
	assert.Len(t, run.Steps, len(steps))
}

func TestEngine_JournalFailureDoesNotFailRun(t *testing.T) {
	steps := plan.Build(plan.Options{})
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}

	journal := &fakeJournal{err: errors.New("disk full")}
	report, err := testEngine(steps, funcs, journal).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeConverged, report.Outcome)
}

func TestEngine_RerunClearsStaleActivation(t *testing.T) {
	steps := plan.Build(plan.DefaultOptions())
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}
	e := testEngine(steps, funcs, nil)
	e.funcs[plan.StepActivate] = func(context.Context) (plan.Status, string, error) {
		e.activation = &Activation{AdminKey: "deadbeef"}
		return plan.StatusApplied, "", nil
	}

	r1, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, r1.Activation)

	// Second run fatal-fails before activation; the report must not show
	// the previous run's state.
	e.funcs[plan.StepRuntime] = fail(errors.New("pip install exploded"))
	r2, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomeFailed, r2.Outcome)
	assert.Nil(t, r2.Activation)
}

func TestEngine_RunIDsAreUnique(t *testing.T) {
	steps := plan.Build(plan.Options{})
	funcs := make(map[plan.StepID]StepFunc)
	for _, s := range steps {
		funcs[s.ID] = ok(s.ID)
	}
	e := testEngine(steps, funcs, nil)

	r1, err := e.Run(context.Background())
	require.NoError(t, err)
	r2, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}

// =============================================================================
// Report Tests
// =============================================================================

func TestReport_RenderIncludesOutcomeAndSteps(t *testing.T) {
	report := &Report{
		RunID:      "0123456789abcdef",
		Target:     "deploy@203.0.113.7:22",
		StartedAt:  time.Now(),
		FinishedAt: time.Now().Add(time.Minute),
		Outcome:    plan.OutcomeDegraded,
		Results: []plan.StepResult{
			{ID: plan.StepPackages, Status: plan.StatusFailed, Severity: plan.SeverityAdvisory, Err: "mirror down"},
			{ID: plan.StepSecrets, Status: plan.StatusSkipped, Reason: "secret file already present"},
		},
	}

	out := report.Render()
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "mirror down")
	assert.Contains(t, out, "secret file already present")
}

func TestReport_RenderShowsAdminKey(t *testing.T) {
	report := &Report{
		RunID:   "run",
		Outcome: plan.OutcomeConverged,
		Activation: &Activation{
			AdminKey: "deadbeef",
		},
	}
	assert.Contains(t, report.Render(), "admin key: deadbeef")
}

func resultsByID(r *Report) map[plan.StepID]plan.StepResult {
	m := make(map[plan.StepID]plan.StepResult, len(r.Results))
	for _, res := range r.Results {
		m[res.ID] = res
	}
	return m
}
