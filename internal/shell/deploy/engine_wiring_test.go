package deploy

import (
	"bytes"
	"context"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/capdeploy/internal/core/plan"
	"github.com/artpar/capdeploy/internal/core/render"
	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Stub Host
// =============================================================================

// stubHost backs file operations with an in-memory filesystem and answers
// commands from canned responses. Unmatched commands succeed with empty
// output. Unlike a plain failure map, a response carries both stdout and an
// error so tests can model commands like systemctl is-active, which exit
// non-zero while still printing the state.
type stubHost struct {
	mu        sync.Mutex
	fs        afero.Fs
	commands  []string
	responses map[string]stubResponse // command prefix -> response
}

type stubResponse struct {
	stdout   string
	exitCode int
	err      error
}

func newStubHost() *stubHost {
	return &stubHost{
		fs:        afero.NewMemMapFs(),
		responses: make(map[string]stubResponse),
	}
}

func (s *stubHost) respond(prefix string, resp stubResponse) {
	s.responses[prefix] = resp
}

func (s *stubHost) Run(_ context.Context, name string, args ...string) (host.CommandResult, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	for prefix, resp := range s.responses {
		if strings.HasPrefix(cmd, prefix) {
			return host.CommandResult{Stdout: resp.stdout, ExitCode: resp.exitCode}, resp.err
		}
	}
	return host.CommandResult{}, nil
}

func (s *stubHost) WriteFile(_ context.Context, path string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(s.fs, path, data, perm)
}

func (s *stubHost) ReadFile(_ context.Context, path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

func (s *stubHost) Exists(_ context.Context, path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

func (s *stubHost) String() string { return "stub" }

func (s *stubHost) Close() error { return nil }

// =============================================================================
// Wired Engine Tests
// =============================================================================

// A unit the supervisor reports as inactive must fail the activate step.
// Activation is advisory, so the run degrades instead of aborting, and the
// report still carries whatever state was collected.
func TestEngine_InactiveUnitDegradesRun(t *testing.T) {
	h := newStubHost()
	require.NoError(t, afero.WriteFile(h.fs, "/opt/captcha-api/requirements.txt", []byte("fastapi\n"), 0o644))

	h.respond("systemctl is-enabled", stubResponse{stdout: "enabled\n"})
	h.respond("systemctl is-active", stubResponse{
		stdout:   "inactive\n",
		exitCode: 3,
		err:      &host.CommandError{Cmd: "systemctl is-active captcha-api", ExitCode: 3},
	})
	h.respond("systemctl status", stubResponse{
		stdout:   "captcha-api.service - loaded (dead)",
		exitCode: 3,
		err:      &host.CommandError{Cmd: "systemctl status --no-pager captcha-api", ExitCode: 3},
	})

	engine := NewEngine(Params{
		Host:          h,
		Logger:        discardLogger(),
		Rand:          bytes.NewReader(make([]byte, 64)),
		AppName:       "captcha-api",
		AppDir:        "/opt/captcha-api",
		Owner:         "root",
		Group:         "root",
		Packages:      []string{"python3"},
		Python:        "python3",
		Requirements:  "requirements.txt",
		SecretPath:    "/opt/captcha-api/.env",
		APIKey:        "test-key",
		AdminKeyBytes: 32,
		Unit: render.UnitSpec{
			User:       "root",
			Group:      "root",
			WorkingDir: "/opt/captcha-api",
			EnvFile:    "/opt/captcha-api/.env",
			VenvDir:    "/opt/captcha-api/venv",
			Server:     "uvicorn",
			Module:     "main:app",
			Host:       "0.0.0.0",
			Port:       8000,
			Workers:    4,
		},
	})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	byID := resultsByID(report)
	activate := byID[plan.StepActivate]
	assert.Equal(t, plan.StatusFailed, activate.Status)
	assert.Contains(t, activate.Err, "not active")

	assert.Equal(t, plan.OutcomeDegraded, report.Outcome)

	require.NotNil(t, report.Activation)
	assert.True(t, report.Activation.Unit.Enabled)
	assert.False(t, report.Activation.Unit.Active)
}
