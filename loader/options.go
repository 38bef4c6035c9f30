package loader

import (
	"log/slog"
)

// FatalHandler receives protocol violations detected by Run. It is expected
// not to return normally; the default panics.
type FatalHandler func(err error)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	registry *Registry
	logger   *slog.Logger
	fatal    FatalHandler
	prefix   string
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		prefix: DefaultCallbackPrefix,
	}
}

// Option configures the Loader.
type Option func(*loaderConfig)

// WithRegistry injects the job registry. Loaders that share a registry share
// a name space; by default each Loader owns a fresh one.
func WithRegistry(r *Registry) Option {
	return func(c *loaderConfig) {
		c.registry = r
	}
}

// WithCallbackPrefix sets the prefix of generated callback names.
// Ignored when a registry is injected.
func WithCallbackPrefix(prefix string) Option {
	return func(c *loaderConfig) {
		c.prefix = prefix
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithFatalHandler sets what Run does with a protocol violation.
func WithFatalHandler(fn FatalHandler) Option {
	return func(c *loaderConfig) {
		c.fatal = fn
	}
}
