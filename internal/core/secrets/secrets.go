// Package secrets handles the application's credential file.
//
// The secret file is the one create-once resource in the deploy procedure:
// it is written on first deploy and never overwritten afterward, so the
// generated admin key survives every redeploy.
package secrets

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Environment keys in the secret file. The application reads both; the
// admin key gates its key-management endpoints.
const (
	KeyAPIKey   = "ROBOFLOW_API_KEY"
	KeyAdminKey = "ADMIN_API_KEY"
)

// DefaultAdminKeyBytes is the entropy of a generated admin key.
const DefaultAdminKeyBytes = 32

var (
	// ErrMissingKey is returned when a parsed secret file lacks a required key.
	ErrMissingKey = errors.New("secret file missing required key")

	// ErrMalformedLine is returned for a non-comment line without '='.
	ErrMalformedLine = errors.New("malformed secret file line")
)

// =============================================================================
// Secret File
// =============================================================================

// File holds the two credentials the application needs.
type File struct {
	APIKey   string // externally supplied, fixed across deploys
	AdminKey string // generated locally on first deploy
}

// Render serializes the secret file as KEY=value lines in fixed order.
func (f File) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", KeyAPIKey, f.APIKey)
	fmt.Fprintf(&b, "%s=%s\n", KeyAdminKey, f.AdminKey)
	return b.String()
}

// Parse reads a secret file back. Blank lines and '#' comments are
// ignored; unknown keys are ignored so operators can add their own
// entries without breaking the readback in the activation report.
func Parse(data []byte) (File, error) {
	var f File
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return File{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		switch strings.TrimSpace(key) {
		case KeyAPIKey:
			f.APIKey = strings.TrimSpace(value)
		case KeyAdminKey:
			f.AdminKey = strings.TrimSpace(value)
		}
	}
	if f.APIKey == "" {
		return File{}, fmt.Errorf("%w: %s", ErrMissingKey, KeyAPIKey)
	}
	if f.AdminKey == "" {
		return File{}, fmt.Errorf("%w: %s", ErrMissingKey, KeyAdminKey)
	}
	return f, nil
}

// =============================================================================
// Key Generation
// =============================================================================

// NewAdminKey generates a hex-encoded admin key with n bytes of entropy
// from r. The rand source is injected so key generation is testable; the
// caller passes crypto/rand.Reader in production.
func NewAdminKey(r io.Reader, n int) (string, error) {
	if n <= 0 {
		n = DefaultAdminKeyBytes
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
