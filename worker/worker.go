// Package worker implements the background side of the loader protocol: it
// fetches packed modules through the host capabilities, compiles them, and
// posts the compiled module back under the request's callback name.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/reglet-dev/packload/domain/ports"
	"github.com/reglet-dev/packload/infrastructure/wazero"
	"github.com/reglet-dev/packload/wireformat"
	"golang.org/x/sync/errgroup"
)

// workerConfig holds configuration for the Worker.
type workerConfig struct {
	logger      *slog.Logger
	concurrency int
}

func defaultWorkerConfig() workerConfig {
	return workerConfig{
		concurrency: 1,
	}
}

// Option configures the Worker.
type Option func(*workerConfig)

// WithConcurrency sets how many requests are fetched and compiled at once.
// Values below one are treated as one.
func WithConcurrency(n int) Option {
	return func(c *workerConfig) {
		c.concurrency = n
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *workerConfig) {
		c.logger = l
	}
}

// Worker serves load requests arriving on its port.
type Worker struct {
	port     ports.MessagePort
	host     ports.HostCapabilities
	compiler ports.ModuleCompiler
	logger   *slog.Logger
	limit    int
}

// New creates a Worker. It does nothing until Run is called.
func New(port ports.MessagePort, host ports.HostCapabilities, compiler ports.ModuleCompiler, opts ...Option) *Worker {
	cfg := defaultWorkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Worker{
		port:     port,
		host:     host,
		compiler: compiler,
		logger:   cfg.logger,
		limit:    cfg.concurrency,
	}
}

// Run serves requests until ctx ends or the loader closes its end of the
// channel, then waits for requests in flight and closes the worker's end.
func (w *Worker) Run(ctx context.Context) error {
	defer w.port.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case msg, ok := <-w.port.Messages():
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				w.handle(gctx, msg)
				return nil
			})
		}
	}
}

// handle serves one request. Every outcome, including a request it cannot
// read, produces exactly one message back to the loader.
func (w *Worker) handle(ctx context.Context, msg any) {
	var req wireformat.LoadRequestWire
	switch m := msg.(type) {
	case wireformat.LoadRequestWire:
		req = m
	case *wireformat.LoadRequestWire:
		if m != nil {
			req = *m
			break
		}
		w.reply(ctx, w.badRequest(msg))
		return
	default:
		w.reply(ctx, w.badRequest(msg))
		return
	}

	ctx = wazero.WithRequestID(ctx, req.RequestID)
	w.logger.DebugContext(ctx, "worker: loading module", "callback", req.RequestID, "url", req.URL)

	mod, err := w.load(ctx, req.URL)
	if err != nil {
		w.logger.WarnContext(ctx, "worker: load failed", "callback", req.RequestID, "url", req.URL, "error", err)
		w.reply(ctx, wireformat.WorkerFaultWire{
			RequestID: req.RequestID,
			URL:       req.URL,
			Error:     domainerrors.ToErrorDetail(err),
		})
		return
	}

	w.reply(ctx, wireformat.LoadReplyWire{RequestID: req.RequestID, Module: mod})
}

func (w *Worker) load(ctx context.Context, url string) (*entities.CompiledModule, error) {
	bin, err := w.host.ReadBinary(ctx, url)
	if err != nil {
		return nil, err
	}
	return w.compiler.Compile(ctx, url, bin)
}

func (w *Worker) badRequest(msg any) wireformat.WorkerFaultWire {
	return wireformat.WorkerFaultWire{
		Error: entities.NewErrorDetail(entities.ErrorTypeProtocol, fmt.Sprintf("unexpected request %#v", msg)),
	}
}

func (w *Worker) reply(ctx context.Context, msg any) {
	if err := w.port.Post(ctx, msg); err != nil {
		w.logger.ErrorContext(ctx, "worker: failed to post reply", "error", err)
	}
}
