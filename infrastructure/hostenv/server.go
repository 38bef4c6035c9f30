package hostenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
)

// SiblingSourceDir is the directory, next to the base directory, that
// relative paths are retried against.
const SiblingSourceDir = "src"

// ServerHost reads from the local filesystem.
type ServerHost struct {
	stdout io.Writer
	scriptLoader
	baseDir string
	mu      sync.Mutex
}

// Environment implements ports.HostCapabilities.
func (h *ServerHost) Environment() entities.Environment {
	return entities.EnvironmentServer
}

// Read returns the file contents as text.
func (h *ServerHost) Read(ctx context.Context, locator string) (string, error) {
	data, err := h.ReadBinary(ctx, locator)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBinary returns the file contents. A relative path that cannot be read
// is retried under <baseDir>/../src.
func (h *ServerHost) ReadBinary(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Clean(locator)
	data, err := os.ReadFile(path)
	if err != nil && !filepath.IsAbs(path) {
		alt := filepath.Join(h.baseDir, "..", SiblingSourceDir, path)
		if altData, altErr := os.ReadFile(alt); altErr == nil {
			return altData, nil
		}
	}
	if err != nil {
		return nil, &domainerrors.FetchError{Err: err, Locator: locator, Environment: entities.EnvironmentServer}
	}
	return data, nil
}

// Load reads the script and evaluates it globally.
func (h *ServerHost) Load(ctx context.Context, locator string) error {
	return h.loadScript(ctx, locator)
}

// Print writes text and a newline to stdout.
func (h *ServerHost) Print(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = fmt.Fprintln(h.stdout, text)
}
