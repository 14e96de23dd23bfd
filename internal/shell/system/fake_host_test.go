package system

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/artpar/capdeploy/internal/shell/host"
)

// fakeHost records commands and backs file operations with an in-memory
// filesystem. Commands succeed unless the test registers a failure.
type fakeHost struct {
	mu       sync.Mutex
	fs       afero.Fs
	commands []string
	fail     map[string]error  // command prefix -> error
	stdout   map[string]string // command prefix -> stdout
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		fs:     afero.NewMemMapFs(),
		fail:   make(map[string]error),
		stdout: make(map[string]string),
	}
}

func (f *fakeHost) failOn(prefix string, err error) {
	f.fail[prefix] = err
}

func (f *fakeHost) respondWith(prefix, out string) {
	f.stdout[prefix] = out
}

func (f *fakeHost) Run(_ context.Context, name string, args ...string) (host.CommandResult, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	var result host.CommandResult
	for prefix, out := range f.stdout {
		if strings.HasPrefix(cmd, prefix) {
			result.Stdout = out
		}
	}
	for prefix, err := range f.fail {
		if strings.HasPrefix(cmd, prefix) {
			result.ExitCode = 1
			return result, err
		}
	}
	return result, nil
}

func (f *fakeHost) WriteFile(_ context.Context, path string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(f.fs, path, data, perm)
}

func (f *fakeHost) ReadFile(_ context.Context, path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

func (f *fakeHost) Exists(_ context.Context, path string) (bool, error) {
	return afero.Exists(f.fs, path)
}

func (f *fakeHost) String() string { return "fake" }

func (f *fakeHost) Close() error { return nil }

// ran reports whether any recorded command starts with prefix.
func (f *fakeHost) ran(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// commandsWithPrefix returns recorded commands starting with prefix.
func (f *fakeHost) commandsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
