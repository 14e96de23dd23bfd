package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Target.Kind)
	assert.Equal(t, "captcha-api", cfg.App.Name)
	assert.Equal(t, "/opt/captcha-api", cfg.App.Dir)
	assert.Equal(t, []string{"python3", "python3-venv", "python3-pip", "nginx", "ufw"}, cfg.App.Packages)
	assert.Equal(t, "uvicorn", cfg.App.Server)
	assert.Equal(t, "main:app", cfg.App.Module)
	assert.Equal(t, "0.0.0.0", cfg.App.Host)
	assert.Equal(t, 8000, cfg.App.Port)
	assert.Equal(t, 4, cfg.App.Workers)
	assert.Equal(t, 32, cfg.Secrets.AdminKeyBytes)
	assert.True(t, cfg.Proxy.Enabled)
	assert.Equal(t, 80, cfg.Proxy.ListenPort)
	assert.Equal(t, 60, cfg.Proxy.TimeoutSeconds)
	assert.True(t, cfg.Firewall.Enabled)
	assert.Equal(t, []string{"OpenSSH", "Nginx Full", "8000/tcp", "80/tcp", "443/tcp"}, cfg.Firewall.Rules)
	assert.Equal(t, "./data/capdeploy.db", cfg.Journal.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
target:
  kind: ssh
  host: "203.0.113.7"
  user: deploy
  key_file: /home/deploy/.ssh/id_ed25519
  command_timeout: 5m

app:
  name: myapi
  dir: /srv/myapi
  port: 9000
  workers: 2

proxy:
  server_names: ["api.example.com", "www.api.example.com"]

log:
  level: debug
  format: json
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "ssh", cfg.Target.Kind)
	assert.Equal(t, "203.0.113.7", cfg.Target.Host)
	assert.Equal(t, "deploy", cfg.Target.User)
	assert.Equal(t, 5*time.Minute, cfg.Target.CommandTimeout)
	assert.Equal(t, "myapi", cfg.App.Name)
	assert.Equal(t, "/srv/myapi", cfg.App.Dir)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, 2, cfg.App.Workers)
	assert.Equal(t, []string{"api.example.com", "www.api.example.com"}, cfg.Proxy.ServerNames)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Defaults survive partial files
	assert.Equal(t, 22, cfg.Target.Port)
	assert.Equal(t, "uvicorn", cfg.App.Server)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("CAPDEPLOY_TARGET_KIND", "ssh")
	t.Setenv("CAPDEPLOY_TARGET_HOST", "198.51.100.4")
	t.Setenv("CAPDEPLOY_SECRETS_API_KEY", "rf_key_123")
	t.Setenv("CAPDEPLOY_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ssh", cfg.Target.Kind)
	assert.Equal(t, "198.51.100.4", cfg.Target.Host)
	assert.Equal(t, "rf_key_123", cfg.Secrets.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Target.Kind)
	assert.Equal(t, 8000, cfg.App.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Derived Spec Tests
// =============================================================================

func TestConfig_SecretPathDefaultsToAppDir(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/captcha-api/.env", cfg.SecretPath())

	cfg.Secrets.Path = "/etc/captcha-api/env"
	assert.Equal(t, "/etc/captcha-api/env", cfg.SecretPath())
}

func TestConfig_UnitSpec(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	spec := cfg.UnitSpec()
	assert.Equal(t, "/opt/captcha-api", spec.WorkingDir)
	assert.Equal(t, "/opt/captcha-api/.env", spec.EnvFile)
	assert.Equal(t, "/opt/captcha-api/venv", spec.VenvDir)
	assert.Equal(t, "uvicorn", spec.Server)
	assert.Equal(t, 8000, spec.Port)
	assert.Equal(t, 4, spec.Workers)
}

func TestConfig_VhostSpecProxiesToLoopback(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	spec := cfg.VhostSpec()
	assert.Equal(t, "127.0.0.1", spec.UpstreamHost)
	assert.Equal(t, 8000, spec.UpstreamPort)
	assert.Equal(t, 80, spec.ListenPort)
	assert.Equal(t, 60, spec.TimeoutSeconds)
}

// =============================================================================
// Deploy Validation Tests
// =============================================================================

func TestConfig_ValidateDeploy(t *testing.T) {
	clearEnv(t)

	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		cfg.Secrets.APIKey = "rf_key_123"
		cfg.Proxy.ServerNames = []string{"api.example.com"}
		return cfg
	}

	assert.NoError(t, valid(t).ValidateDeploy())

	cfg := valid(t)
	cfg.Secrets.APIKey = ""
	assert.ErrorContains(t, cfg.ValidateDeploy(), "secrets.api_key")

	// Proxy enabled without server names would render `server_name ;`
	cfg = valid(t)
	cfg.Proxy.ServerNames = nil
	assert.ErrorContains(t, cfg.ValidateDeploy(), "proxy.server_names")

	// Disabling the proxy step lifts the server-name requirement
	cfg = valid(t)
	cfg.Proxy.ServerNames = nil
	cfg.Proxy.Enabled = false
	assert.NoError(t, cfg.ValidateDeploy())
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		cfg := &Config{Log: LogConfig{Level: "info", Format: format}}
		assert.NotNil(t, SetupLogger(cfg))
	}
}

func TestSetupLogger_InvalidLevelFallsBack(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "chatty", Format: "text"}}
	// Should fall back to info level, not panic
	assert.NotNil(t, SetupLogger(cfg))
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"CAPDEPLOY_TARGET_KIND",
		"CAPDEPLOY_TARGET_HOST",
		"CAPDEPLOY_TARGET_USER",
		"CAPDEPLOY_APP_DIR",
		"CAPDEPLOY_SECRETS_API_KEY",
		"CAPDEPLOY_JOURNAL_DSN",
		"CAPDEPLOY_LOG_LEVEL",
		"CAPDEPLOY_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
