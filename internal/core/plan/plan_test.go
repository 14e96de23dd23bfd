package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Build Tests
// =============================================================================

func TestBuild_DefaultIncludesAllSteps(t *testing.T) {
	steps := Build(DefaultOptions())
	assert.Len(t, steps, 8)

	byID := stepsByID(steps)
	for _, id := range []StepID{
		StepPackages, StepAppDir, StepRuntime, StepSecrets,
		StepUnit, StepProxy, StepFirewall, StepActivate,
	} {
		_, ok := byID[id]
		assert.True(t, ok, "plan should contain step %s", id)
	}
}

func TestBuild_SecretsIsTheOnlyCreateOnceStep(t *testing.T) {
	for _, s := range Build(DefaultOptions()) {
		if s.ID == StepSecrets {
			assert.Equal(t, ClassCreateOnce, s.Class)
		} else {
			assert.Equal(t, ClassConverge, s.Class, "step %s", s.ID)
		}
	}
}

func TestBuild_Severities(t *testing.T) {
	fatal := map[StepID]bool{
		StepAppDir:  true,
		StepRuntime: true,
		StepSecrets: true,
		StepUnit:    true,
	}
	for _, s := range Build(DefaultOptions()) {
		if fatal[s.ID] {
			assert.Equal(t, SeverityFatal, s.Severity, "step %s", s.ID)
		} else {
			assert.Equal(t, SeverityAdvisory, s.Severity, "step %s", s.ID)
		}
	}
}

func TestBuild_WithoutProxyAndFirewall(t *testing.T) {
	steps := Build(Options{})
	assert.Len(t, steps, 6)

	byID := stepsByID(steps)
	_, hasProxy := byID[StepProxy]
	_, hasFirewall := byID[StepFirewall]
	assert.False(t, hasProxy)
	assert.False(t, hasFirewall)

	// activate must not depend on the absent firewall step
	activate, ok := byID[StepActivate]
	require.True(t, ok)
	assert.Equal(t, []StepID{StepUnit}, activate.DependsOn)
}

func TestBuild_UnitDependsOnRuntimeAndSecrets(t *testing.T) {
	byID := stepsByID(Build(DefaultOptions()))
	unit := byID[StepUnit]
	assert.ElementsMatch(t, []StepID{StepRuntime, StepSecrets}, unit.DependsOn)
}

func TestBuild_FirewallHasNoDependencies(t *testing.T) {
	byID := stepsByID(Build(DefaultOptions()))
	assert.Empty(t, byID[StepFirewall].DependsOn)
}

func stepsByID(steps []Step) map[StepID]Step {
	m := make(map[StepID]Step, len(steps))
	for _, s := range steps {
		m[s.ID] = s
	}
	return m
}
