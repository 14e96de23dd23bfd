package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/capdeploy/internal/core/render"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration. Every input the deploy
// procedure needs is an explicit field here; nothing is read from the
// ambient process environment at execution time.
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	App      AppConfig      `mapstructure:"app"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Firewall FirewallConfig `mapstructure:"firewall"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Log      LogConfig      `mapstructure:"log"`
	Provider ProviderConfig `mapstructure:"provider"`
}

// TargetConfig selects and configures the host the procedure runs against.
type TargetConfig struct {
	// Kind is "local" or "ssh".
	Kind string `mapstructure:"kind"`

	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	KeyFile        string        `mapstructure:"key_file"` // PEM private key path
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// AppConfig describes the application being deployed.
type AppConfig struct {
	Name         string   `mapstructure:"name"` // unit, vhost and site name
	Dir          string   `mapstructure:"dir"`
	User         string   `mapstructure:"user"` // running user; also owns the app dir
	Group        string   `mapstructure:"group"`
	Packages     []string `mapstructure:"packages"`
	Python       string   `mapstructure:"python"`
	Requirements string   `mapstructure:"requirements"` // relative to app dir
	Server       string   `mapstructure:"server"`       // ASGI server binary in the venv
	Module       string   `mapstructure:"module"`       // app module, e.g. main:app
	Host         string   `mapstructure:"host"`         // bind address
	Port         int      `mapstructure:"port"`
	Workers      int      `mapstructure:"workers"`
}

// SecretsConfig configures the secret file step.
type SecretsConfig struct {
	Path          string `mapstructure:"path"` // defaults to <app.dir>/.env
	APIKey        string `mapstructure:"api_key"`
	AdminKeyBytes int    `mapstructure:"admin_key_bytes"`
}

// ProxyConfig configures the nginx vhost step.
type ProxyConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	ServerNames    []string `mapstructure:"server_names"`
	ListenPort     int      `mapstructure:"listen_port"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// FirewallConfig configures the ufw step.
type FirewallConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Rules   []string `mapstructure:"rules"`
}

// ProbeConfig configures the post-activation HTTP health probe.
type ProbeConfig struct {
	URL     string        `mapstructure:"url"` // empty disables the probe
	Timeout time.Duration `mapstructure:"timeout"`
}

// JournalConfig configures the run journal database.
type JournalConfig struct {
	DSN string `mapstructure:"dsn"` // empty disables journaling
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig configures cloud provisioning.
type ProviderConfig struct {
	Type            string `mapstructure:"type"` // aws | digitalocean | hetzner
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ValidateDeploy checks the fields a deploy run cannot proceed without.
// A missing server name would render an invalid vhost (`server_name ;`)
// that only surfaces as an nginx -t failure mid-run, so it is rejected
// up front.
func (c *Config) ValidateDeploy() error {
	if c.Secrets.APIKey == "" {
		return fmt.Errorf("secrets.api_key is required (CAPDEPLOY_SECRETS_API_KEY)")
	}
	if c.Proxy.Enabled && len(c.Proxy.ServerNames) == 0 {
		return fmt.Errorf("proxy.server_names is required when the proxy step is enabled")
	}
	return nil
}

// SecretPath returns the configured secret file path, defaulting to
// .env inside the application directory.
func (c *Config) SecretPath() string {
	if c.Secrets.Path != "" {
		return c.Secrets.Path
	}
	return c.App.Dir + "/.env"
}

// UnitSpec builds the systemd unit rendering spec from config.
func (c *Config) UnitSpec() render.UnitSpec {
	return render.UnitSpec{
		Description: c.App.Name + " service",
		User:        c.App.User,
		Group:       c.App.Group,
		WorkingDir:  c.App.Dir,
		EnvFile:     c.SecretPath(),
		VenvDir:     c.App.Dir + "/venv",
		Server:      c.App.Server,
		Module:      c.App.Module,
		Host:        c.App.Host,
		Port:        c.App.Port,
		Workers:     c.App.Workers,
	}
}

// VhostSpec builds the nginx vhost rendering spec from config.
func (c *Config) VhostSpec() render.VhostSpec {
	return render.VhostSpec{
		ServerNames:    c.Proxy.ServerNames,
		ListenPort:     c.Proxy.ListenPort,
		UpstreamHost:   "127.0.0.1",
		UpstreamPort:   c.App.Port,
		TimeoutSeconds: c.Proxy.TimeoutSeconds,
	}
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("target.kind", "local")
	v.SetDefault("target.port", 22)
	v.SetDefault("target.user", "root")
	v.SetDefault("target.command_timeout", "10m")
	v.SetDefault("target.connect_timeout", "10s")

	v.SetDefault("app.name", "captcha-api")
	v.SetDefault("app.dir", "/opt/captcha-api")
	v.SetDefault("app.user", "root")
	v.SetDefault("app.group", "root")
	v.SetDefault("app.packages", []string{"python3", "python3-venv", "python3-pip", "nginx", "ufw"})
	v.SetDefault("app.python", "python3")
	v.SetDefault("app.requirements", "requirements.txt")
	v.SetDefault("app.server", "uvicorn")
	v.SetDefault("app.module", "main:app")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.workers", 4)

	v.SetDefault("secrets.path", "") // derived from app.dir when empty
	v.SetDefault("secrets.api_key", "")
	v.SetDefault("secrets.admin_key_bytes", 32)

	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.server_names", []string{})
	v.SetDefault("proxy.listen_port", 80)
	v.SetDefault("proxy.timeout_seconds", 60)

	v.SetDefault("firewall.enabled", true)
	v.SetDefault("firewall.rules", []string{"OpenSSH", "Nginx Full", "8000/tcp", "80/tcp", "443/tcp"})

	v.SetDefault("probe.url", "")
	v.SetDefault("probe.timeout", "5s")

	v.SetDefault("journal.dsn", "./data/capdeploy.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("provider.type", "")
	v.SetDefault("provider.credentials_file", "")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("CAPDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
