package host

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocal() *Local {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLocalWithFs(afero.NewMemMapFs(), logger)
}

func TestLocal_WriteReadFile(t *testing.T) {
	h := testLocal()
	ctx := context.Background()

	err := h.WriteFile(ctx, "/opt/captcha-api/.env", []byte("KEY=value\n"), 0o600)
	require.NoError(t, err)

	data, err := h.ReadFile(ctx, "/opt/captcha-api/.env")
	require.NoError(t, err)
	assert.Equal(t, "KEY=value\n", string(data))
}

func TestLocal_WriteFileCreatesParents(t *testing.T) {
	h := testLocal()
	ctx := context.Background()

	err := h.WriteFile(ctx, "/etc/systemd/system/captcha-api.service", []byte("[Unit]\n"), 0o644)
	require.NoError(t, err)

	exists, err := h.Exists(ctx, "/etc/systemd/system/captcha-api.service")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocal_WriteFileOverwrites(t *testing.T) {
	h := testLocal()
	ctx := context.Background()

	require.NoError(t, h.WriteFile(ctx, "/tmp/f", []byte("old"), 0o644))
	require.NoError(t, h.WriteFile(ctx, "/tmp/f", []byte("new"), 0o644))

	data, err := h.ReadFile(ctx, "/tmp/f")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocal_ExistsMissing(t *testing.T) {
	h := testLocal()
	exists, err := h.Exists(context.Background(), "/nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocal_RunCapturesStdout(t *testing.T) {
	h := testLocal()
	result, err := h.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
}

func TestLocal_RunNonZeroExit(t *testing.T) {
	h := testLocal()
	_, err := h.Run(context.Background(), "false")
	require.Error(t, err)

	cmdErr, ok := err.(*CommandError)
	require.True(t, ok)
	assert.Equal(t, 1, cmdErr.ExitCode)
}

func TestLocal_String(t *testing.T) {
	assert.Equal(t, "local", testLocal().String())
}
