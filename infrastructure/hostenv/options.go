package hostenv

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/reglet-dev/packload/domain/entities"
	"github.com/reglet-dev/packload/domain/ports"
)

// ImportScriptsFunc is a worker's script-importing primitive.
type ImportScriptsFunc func(ctx context.Context, locator string) error

// ShellPrimitives are the I/O functions an embedded shell exposes.
// Read is required; the others are optional.
type ShellPrimitives struct {
	// Read returns the named file, as raw bytes when binary is set.
	Read func(locator string, binary bool) ([]byte, error)

	// ReadBuffer returns the named file as raw bytes. Preferred over Read for
	// binary reads when present.
	ReadBuffer func(locator string) ([]byte, error)

	// Print writes one line to the shell's output.
	Print func(text string)
}

// hostConfig holds configuration for binding host capabilities.
type hostConfig struct {
	httpClient    *http.Client
	evaluator     ports.ScriptEvaluator
	stdout        io.Writer
	logger        *slog.Logger
	indicators    *entities.Indicators
	importScripts ImportScriptsFunc
	shell         *ShellPrimitives
	environment   entities.Environment
	baseDir       string
	baseURL       string
	httpTimeout   time.Duration
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		stdout:      os.Stdout,
		httpTimeout: 30 * time.Second,
		baseDir:     executableDir(),
	}
}

// Option configures host detection and binding.
type Option func(*hostConfig)

// WithIndicators replaces probing with the given indicators.
func WithIndicators(ind entities.Indicators) Option {
	return func(c *hostConfig) {
		c.indicators = &ind
	}
}

// WithEnvironment skips detection and binds env directly.
// An empty env keeps detection.
func WithEnvironment(env entities.Environment) Option {
	return func(c *hostConfig) {
		c.environment = env
	}
}

// WithBaseDir sets the directory the server host falls back from when a
// relative path does not resolve. The fallback is <dir>/../src.
// Default is the directory of the running executable.
func WithBaseDir(dir string) Option {
	return func(c *hostConfig) {
		c.baseDir = dir
	}
}

// WithBaseURL sets the URL relative locators resolve against in web and
// worker hosts.
func WithBaseURL(u string) Option {
	return func(c *hostConfig) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the client used by web and worker hosts.
func WithHTTPClient(client *http.Client) Option {
	return func(c *hostConfig) {
		c.httpClient = client
	}
}

// WithHTTPTimeout bounds each synchronous fetch when no client is supplied.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *hostConfig) {
		c.httpTimeout = d
	}
}

// WithShellPrimitives supplies the embedded shell's primitives, replacing the
// ones found on the platform.
func WithShellPrimitives(p ShellPrimitives) Option {
	return func(c *hostConfig) {
		c.shell = &p
	}
}

// WithImportScripts supplies the worker's script-importing primitive.
func WithImportScripts(fn ImportScriptsFunc) Option {
	return func(c *hostConfig) {
		c.importScripts = fn
	}
}

// WithEvaluator sets the global-scope evaluator used by Load.
// Default is a goja evaluator whose print() forwards to the host Print.
func WithEvaluator(e ports.ScriptEvaluator) Option {
	return func(c *hostConfig) {
		c.evaluator = e
	}
}

// WithStdout sets where the server host prints. Default is os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(c *hostConfig) {
		c.stdout = w
	}
}

// WithLogger sets the logger web and worker hosts print through.
func WithLogger(l *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = l
	}
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
