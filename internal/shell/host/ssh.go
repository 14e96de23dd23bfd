package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// =============================================================================
// SSH Host
// =============================================================================

// SSH runs commands on a remote host over SSH. Each command gets its own
// session; the underlying connection is established lazily and re-dialed
// when a keepalive probe fails.
type SSH struct {
	addr    string
	user    string
	signer  ssh.Signer
	timeout time.Duration
	dialTO  time.Duration

	mu     sync.Mutex // protects client
	client *ssh.Client
	logger *slog.Logger
}

// SSHConfig configures the SSH host.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	PrivateKey     []byte        // PEM-encoded private key
	CommandTimeout time.Duration // default 10 minutes; package installs are slow
	ConnectTimeout time.Duration // default 10 seconds
}

// NewSSH creates an SSH host. The connection is not dialed until first use.
func NewSSH(cfg SSHConfig, logger *slog.Logger) (*SSH, error) {
	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse SSH private key: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 10 * time.Minute
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	return &SSH{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		user:    cfg.User,
		signer:  signer,
		timeout: cfg.CommandTimeout,
		dialTO:  cfg.ConnectTimeout,
		logger:  logger,
	}, nil
}

// connect establishes the SSH connection if not already connected.
func (h *SSH) connect(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		_, _, err := h.client.SendRequest("keepalive@capdeploy", true, nil)
		if err == nil {
			return nil
		}
		h.client.Close()
		h.client = nil
	}

	config := &ssh.ClientConfig{
		User:            h.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(h.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: record host key on provision and verify here
		Timeout:         h.dialTO,
	}

	client, err := ssh.Dial("tcp", h.addr, config)
	if err != nil {
		return fmt.Errorf("SSH dial %s: %w", h.addr, err)
	}
	h.client = client
	return nil
}

// session creates a new SSH session on the shared connection.
func (h *SSH) session(ctx context.Context) (*ssh.Session, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, err := h.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create SSH session: %w", err)
	}
	return sess, nil
}

// runRemote executes cmdStr in a fresh session with optional stdin.
func (h *SSH) runRemote(ctx context.Context, cmdStr string, stdin []byte) (CommandResult, error) {
	sess, err := h.session(ctx)
	if err != nil {
		return CommandResult{}, err
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if stdin != nil {
		sess.Stdin = bytes.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(cmdStr)
	}()

	select {
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	case <-time.After(h.timeout):
		return CommandResult{}, fmt.Errorf("timeout running %q on %s", cmdStr, h.addr)
	case err = <-done:
	}

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			result.ExitCode = exitErr.ExitStatus()
			return result, &CommandError{
				Cmd:      cmdStr,
				ExitCode: result.ExitCode,
				Stderr:   strings.TrimSpace(result.Stderr),
			}
		}
		return result, err
	}
	return result, nil
}

// Run executes a command on the remote host.
func (h *SSH) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	return h.runRemote(ctx, joinCommand(name, args), nil)
}

// WriteFile uploads data to path via cat, creating parent directories.
// Streaming through stdin avoids both a file-transfer subsystem dependency
// and shell-escaping the payload.
func (h *SSH) WriteFile(ctx context.Context, p string, data []byte, perm fs.FileMode) error {
	if _, err := h.runRemote(ctx, writeFileCmd(p, perm), data); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// writeFileCmd builds the remote write pipeline. The file is created under
// umask 077 so it is never momentarily readable wider than the requested
// mode; chmod then sets the exact mode.
func writeFileCmd(p string, perm fs.FileMode) string {
	return fmt.Sprintf("mkdir -p %s && umask 077 && cat > %s && chmod %o %s",
		quote(path.Dir(p)), quote(p), perm.Perm(), quote(p))
}

// ReadFile returns the contents of path on the remote host.
func (h *SSH) ReadFile(ctx context.Context, p string) ([]byte, error) {
	result, err := h.runRemote(ctx, "cat "+quote(p), nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return []byte(result.Stdout), nil
}

// Exists reports whether path exists on the remote host.
func (h *SSH) Exists(ctx context.Context, p string) (bool, error) {
	_, err := h.runRemote(ctx, "test -e "+quote(p), nil)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (h *SSH) String() string {
	return h.user + "@" + h.addr
}

// Close closes the SSH connection.
func (h *SSH) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		err := h.client.Close()
		h.client = nil
		return err
	}
	return nil
}
