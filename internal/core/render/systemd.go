package render

import (
	"fmt"
	"path"
	"strings"
)

// =============================================================================
// Service Unit Rendering
// =============================================================================

// UnitSpec describes the systemd service unit for the application.
type UnitSpec struct {
	Description string
	User        string
	Group       string
	WorkingDir  string
	EnvFile     string
	// ASGI server invocation
	VenvDir string // virtualenv root; the server binary lives under bin/
	Server  string // server binary name, e.g. "uvicorn"
	Module  string // app module, e.g. "main:app"
	Host    string // bind address, e.g. "0.0.0.0"
	Port    int
	Workers int
}

// ExecStart returns the unit's start command line.
func (s UnitSpec) ExecStart() string {
	return fmt.Sprintf("%s %s --host %s --port %d --workers %d",
		path.Join(s.VenvDir, "bin", s.Server), s.Module, s.Host, s.Port, s.Workers)
}

// UnitFile renders the systemd unit file. Output is deterministic: two
// consecutive runs write byte-identical files even though the unit is
// rewritten unconditionally on every deploy.
func UnitFile(s UnitSpec) string {
	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", s.Description)
	b.WriteString("After=network.target\n")
	b.WriteString("\n[Service]\n")
	fmt.Fprintf(&b, "User=%s\n", s.User)
	fmt.Fprintf(&b, "Group=%s\n", s.Group)
	fmt.Fprintf(&b, "WorkingDirectory=%s\n", s.WorkingDir)
	fmt.Fprintf(&b, "EnvironmentFile=%s\n", s.EnvFile)
	fmt.Fprintf(&b, "ExecStart=%s\n", s.ExecStart())
	b.WriteString("Restart=always\n")
	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}
