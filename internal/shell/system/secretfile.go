package system

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/artpar/capdeploy/internal/core/secrets"
	"github.com/artpar/capdeploy/internal/shell/host"
)

// =============================================================================
// Secret Materialization
// =============================================================================

// SecretWriter materializes the application's secret file. This is the
// procedure's one create-once resource: an existing file is never touched,
// whatever it contains, so the admin key generated on first deploy is
// never rotated by a redeploy.
type SecretWriter struct {
	host     host.Host
	logger   *slog.Logger
	path     string
	apiKey   string
	keyBytes int
	rand     io.Reader
}

// NewSecretWriter creates a secret writer. rand is the entropy source for
// admin key generation; pass crypto/rand.Reader outside of tests.
func NewSecretWriter(h host.Host, path, apiKey string, keyBytes int, rand io.Reader, logger *slog.Logger) *SecretWriter {
	return &SecretWriter{
		host:     h,
		logger:   logger,
		path:     path,
		apiKey:   apiKey,
		keyBytes: keyBytes,
		rand:     rand,
	}
}

// Materialize writes the secret file if it does not exist. It returns
// created=false when an existing file was preserved.
func (s *SecretWriter) Materialize(ctx context.Context) (created bool, err error) {
	if s.apiKey == "" {
		return false, fmt.Errorf("no API key configured; set secrets.api_key")
	}

	exists, err := s.host.Exists(ctx, s.path)
	if err != nil {
		return false, fmt.Errorf("check secret file: %w", err)
	}
	if exists {
		s.logger.Info("secret file present, preserving existing credentials", "path", s.path)
		return false, nil
	}

	adminKey, err := secrets.NewAdminKey(s.rand, s.keyBytes)
	if err != nil {
		return false, fmt.Errorf("generate admin key: %w", err)
	}

	file := secrets.File{APIKey: s.apiKey, AdminKey: adminKey}
	if err := s.host.WriteFile(ctx, s.path, []byte(file.Render()), 0o600); err != nil {
		return false, fmt.Errorf("write secret file: %w", err)
	}

	s.logger.Info("secret file created", "path", s.path)
	return true, nil
}

// ReadAdminKey reads the admin key back from the secret file for the
// activation report.
func (s *SecretWriter) ReadAdminKey(ctx context.Context) (string, error) {
	data, err := s.host.ReadFile(ctx, s.path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	file, err := secrets.Parse(data)
	if err != nil {
		return "", err
	}
	return file.AdminKey, nil
}
