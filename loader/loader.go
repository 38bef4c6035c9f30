package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/reglet-dev/packload/domain/ports"
	"github.com/reglet-dev/packload/wireformat"
)

// Loader issues load requests to a background worker and resolves the
// matching jobs from its replies.
type Loader struct {
	port     ports.MessagePort
	registry *Registry
	logger   *slog.Logger
	fatal    FatalHandler
}

// New creates a Loader that talks to the worker on the other end of port.
// Call Run to start handling replies.
func New(port ports.MessagePort, opts ...Option) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Loader{
		port:     port,
		registry: cfg.registry,
		logger:   cfg.logger,
		fatal:    cfg.fatal,
	}
	if l.registry == nil {
		l.registry = NewRegistry(cfg.prefix)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.fatal == nil {
		l.fatal = func(err error) {
			l.logger.Error("loader: fatal protocol violation", "error", err)
			panic(err)
		}
	}
	return l
}

// Registry returns the registry of pending jobs.
func (l *Loader) Registry() *Registry {
	return l.registry
}

// LoadPackedModule asks the worker to fetch and compile the module at url
// and returns its pending Job without waiting. url is passed through
// unvalidated. An error means the request could not be sent; no job is left
// behind in that case.
func (l *Loader) LoadPackedModule(ctx context.Context, url string) (*Job, error) {
	job := newJob(l.registry.Next(), url)
	if !l.registry.Insert(job) {
		// only possible when a shared registry was handed colliding names
		return nil, &domainerrors.ProtocolError{Err: domainerrors.ErrBadJob, CallbackName: job.callbackName}
	}

	req := wireformat.LoadRequestWire{RequestID: job.callbackName, URL: url}
	if err := l.port.Post(ctx, req); err != nil {
		l.registry.Take(job.callbackName)
		return nil, fmt.Errorf("failed to send load request for %s: %w", url, err)
	}

	l.logger.DebugContext(ctx, "loader: load requested", "callback", job.callbackName, "url", url)
	return job, nil
}

// Report is the completion-report handler. It removes the job registered
// under callbackName and hands mod to its continuation. An unknown name,
// including one that already resolved, is ErrBadJob.
func (l *Loader) Report(callbackName string, mod *entities.CompiledModule) error {
	job, ok := l.registry.Take(callbackName)
	if !ok {
		return &domainerrors.ProtocolError{Err: domainerrors.ErrBadJob, CallbackName: callbackName}
	}
	job.resolve(mod)
	return nil
}

// HandleMessage processes one message from the worker. Anything other than
// a load reply is a protocol violation naming the raw payload; the jobs it
// may concern stay pending.
func (l *Loader) HandleMessage(msg any) error {
	switch m := msg.(type) {
	case wireformat.LoadReplyWire:
		return l.Report(m.RequestID, m.Module)
	case *wireformat.LoadReplyWire:
		if m == nil {
			break
		}
		return l.Report(m.RequestID, m.Module)
	case wireformat.WorkerFaultWire:
		return &domainerrors.ProtocolError{Err: domainerrors.ErrWorkerFault, CallbackName: m.RequestID, Payload: m}
	case *wireformat.WorkerFaultWire:
		if m == nil {
			break
		}
		return &domainerrors.ProtocolError{Err: domainerrors.ErrWorkerFault, CallbackName: m.RequestID, Payload: *m}
	}
	return &domainerrors.ProtocolError{Err: domainerrors.ErrMalformedReply, Payload: msg}
}

// Run handles worker messages until ctx ends or the worker closes its end.
// Every protocol violation goes to the fatal handler.
func (l *Loader) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-l.port.Messages():
			if !ok {
				if n := l.registry.Len(); n > 0 {
					l.logger.WarnContext(ctx, "loader: worker closed with jobs pending", "pending", n)
				}
				return nil
			}
			if err := l.HandleMessage(msg); err != nil {
				l.fatal(err)
			}
		}
	}
}

// Close closes the loader's end of the channel, which stops the worker.
// Pending jobs stay pending.
func (l *Loader) Close() error {
	return l.port.Close()
}
