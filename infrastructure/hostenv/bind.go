package hostenv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/reglet-dev/packload/domain/ports"
	gojaeval "github.com/reglet-dev/packload/infrastructure/goja"
)

// New detects the host environment and binds its capabilities.
func New(opts ...Option) (ports.HostCapabilities, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	env := cfg.environment
	if env == "" {
		ind := Probe()
		if cfg.indicators != nil {
			ind = *cfg.indicators
		}
		detected, err := Detect(ind)
		if err != nil {
			return nil, err
		}
		env = detected
	}
	return bind(env, cfg)
}

// Bind binds the capabilities of env without probing.
func Bind(env entities.Environment, opts ...Option) (ports.HostCapabilities, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return bind(env, cfg)
}

func bind(env entities.Environment, cfg hostConfig) (ports.HostCapabilities, error) {
	var (
		host ports.HostCapabilities
		base *scriptLoader
		err  error
	)

	switch env {
	case entities.EnvironmentServer:
		h := &ServerHost{baseDir: cfg.baseDir, stdout: cfg.stdout}
		base, host = &h.scriptLoader, h
	case entities.EnvironmentShell:
		prims := platformShellPrimitives()
		if cfg.shell != nil {
			prims = *cfg.shell
		}
		if prims.Read == nil {
			return nil, &domainerrors.InitError{Err: domainerrors.ErrMissingPrimitive, Environment: env, Primitive: "read"}
		}
		h := &ShellHost{prims: prims}
		base, host = &h.scriptLoader, h
	case entities.EnvironmentWeb, entities.EnvironmentWorker:
		h, werr := newWebHost(env, cfg)
		if werr != nil {
			return nil, werr
		}
		base, host = &h.scriptLoader, h
	default:
		return nil, &domainerrors.InitError{Err: domainerrors.ErrUnknownEnvironment, Environment: env}
	}

	base.host = host
	base.evaluator = cfg.evaluator
	if base.evaluator == nil {
		base.evaluator, err = gojaeval.NewEvaluator(gojaeval.WithPrint(host.Print))
		if err != nil {
			return nil, &domainerrors.InitError{Err: err, Environment: env}
		}
	}

	slog.Debug("hostenv: capabilities bound", "environment", env)
	return host, nil
}

func newWebHost(env entities.Environment, cfg hostConfig) (*WebHost, error) {
	h := &WebHost{env: env, client: cfg.httpClient, logger: cfg.logger}
	if h.client == nil {
		h.client = &http.Client{Timeout: cfg.httpTimeout}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if cfg.baseURL != "" {
		u, err := url.Parse(cfg.baseURL)
		if err != nil {
			return nil, &domainerrors.InitError{Err: fmt.Errorf("invalid base url: %w", err), Environment: env}
		}
		h.baseURL = u
	}
	if env == entities.EnvironmentWorker {
		h.importScripts = cfg.importScripts
		if h.importScripts == nil {
			h.importScripts = platformImportScripts()
		}
	}
	return h, nil
}

// scriptLoader implements the default Load: read the script as text, then
// evaluate it in the global scope.
type scriptLoader struct {
	host      ports.HostCapabilities
	evaluator ports.ScriptEvaluator
}

func (l *scriptLoader) loadScript(ctx context.Context, locator string) error {
	src, err := l.host.Read(ctx, locator)
	if err != nil {
		return err
	}
	return l.evaluator.Eval(ctx, locator, src)
}

var (
	_ ports.HostCapabilities = (*ServerHost)(nil)
	_ ports.HostCapabilities = (*ShellHost)(nil)
	_ ports.HostCapabilities = (*WebHost)(nil)
)
