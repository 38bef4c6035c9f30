// Command packload fetches packed WebAssembly modules, compiles them on a
// background worker and prints one JSON line per compiled module.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/packload/config"
	"github.com/reglet-dev/packload/domain/entities"
	"github.com/reglet-dev/packload/domain/ports"
	"github.com/reglet-dev/packload/infrastructure/hostenv"
	"github.com/reglet-dev/packload/infrastructure/wazero"
	"github.com/reglet-dev/packload/internal/msgport"
	"github.com/reglet-dev/packload/loader"
	"github.com/reglet-dev/packload/log"
	"github.com/reglet-dev/packload/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// moduleLine is the JSON line printed for each compiled module.
type moduleLine struct {
	URL          string   `json:"url"`
	CallbackName string   `json:"callback_name"`
	Name         string   `json:"name,omitempty"`
	Digest       string   `json:"digest"`
	Exports      []string `json:"exports"`
	Memories     []string `json:"memories,omitempty"`
	Imports      []string `json:"imports"`
	Size         int      `json:"size"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("packload", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "path to a YAML config file")
	printSchema := fs.Bool("schema", false, "print the config file JSON schema and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: packload [-c config.yaml] [--schema] url...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *printSchema {
		data, err := config.Schema()
		if err != nil {
			fmt.Fprintf(stderr, "packload: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "packload: %v\n", err)
			return 1
		}
	}

	if err := load(ctx, cfg, fs.Args(), stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "packload: %v\n", err)
		return 1
	}
	return 0
}

// load wires host, compiler, worker and loader, requests every url and
// prints each module as its job resolves. A protocol violation reported by
// the loader aborts the run.
func load(ctx context.Context, cfg *config.Config, urls []string, stdout, stderr io.Writer) error {
	host, err := newHost(cfg, stderr)
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.Log, stderr, host.Print)
	if err != nil {
		return err
	}
	logger.Debug("packload: host bound", "environment", host.Environment())

	compiler, err := wazero.NewCompiler(ctx,
		wazero.WithMemoryLimitPages(cfg.Runtime.MemoryLimitPages),
		wazero.WithCacheDir(cfg.Runtime.CacheDir),
		wazero.WithMaxDecodedSize(cfg.Runtime.MaxDecodedSize),
		wazero.WithCloseOnContextDone(cfg.Runtime.CloseOnContextDone),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := compiler.Close(context.Background()); cerr != nil {
			logger.Warn("packload: failed to close compiler", "error", cerr)
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	mainPort, workerPort := msgport.Pipe(cfg.Loader.QueueSize)
	w := worker.New(workerPort, host, compiler,
		worker.WithConcurrency(cfg.Worker.Concurrency),
		worker.WithLogger(logger.With("component", "worker")),
	)
	l := loader.New(mainPort,
		loader.WithCallbackPrefix(cfg.Loader.CallbackPrefix),
		loader.WithLogger(logger.With("component", "loader")),
		loader.WithFatalHandler(func(err error) {
			logger.Error("packload: protocol violation", "error", err)
			cancel(err)
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return l.Run(gctx) })

	err = printModules(ctx, l, urls, stdout)
	_ = l.Close()
	if werr := g.Wait(); err == nil && werr != nil && !errors.Is(werr, context.Canceled) {
		err = werr
	}
	return err
}

func printModules(ctx context.Context, l *loader.Loader, urls []string, stdout io.Writer) error {
	jobs := make([]*loader.Job, 0, len(urls))
	for _, url := range urls {
		job, err := l.LoadPackedModule(ctx, url)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	enc := json.NewEncoder(stdout)
	for _, job := range jobs {
		mod, err := job.Wait(ctx)
		if err != nil {
			if cause := context.Cause(ctx); cause != nil {
				return cause
			}
			return err
		}
		if err := enc.Encode(lineFor(job, mod)); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return nil
}

func lineFor(job *loader.Job, mod *entities.CompiledModule) moduleLine {
	line := moduleLine{
		URL:          job.URL(),
		CallbackName: job.CallbackName(),
		Exports:      []string{},
		Imports:      []string{},
	}
	if mod == nil {
		return line
	}
	line.Name = mod.Name
	line.Digest = mod.Digest
	line.Size = mod.Size
	line.Memories = mod.Memories
	if mod.Exports != nil {
		line.Exports = mod.Exports
	}
	if mod.Imports != nil {
		line.Imports = mod.Imports
	}
	return line
}

// newHost binds the host capabilities. Host output goes to console, never to
// the module lines on stdout. The host logs through its own logger built from
// cfg.Log: with the print format the main logger writes through the host, so
// the host falls back to JSON records.
func newHost(cfg *config.Config, console io.Writer) (ports.HostCapabilities, error) {
	hostLog := cfg.Log
	if hostLog.Format == "print" {
		hostLog.Format = "json"
	}
	hostLogger, err := log.New(hostLog, console, nil)
	if err != nil {
		return nil, err
	}
	return hostenv.New(hostOptions(cfg.Host, console, hostLogger)...)
}

// hostOptions translates the host section of the config file.
func hostOptions(cfg config.HostConfig, console io.Writer, logger *slog.Logger) []hostenv.Option {
	opts := []hostenv.Option{
		hostenv.WithStdout(console),
		hostenv.WithHTTPTimeout(cfg.HTTPTimeout),
		hostenv.WithLogger(logger),
	}
	if cfg.Environment != "" && cfg.Environment != "auto" {
		opts = append(opts, hostenv.WithEnvironment(entities.Environment(cfg.Environment)))
	}
	if cfg.BaseDir != "" {
		opts = append(opts, hostenv.WithBaseDir(cfg.BaseDir))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, hostenv.WithBaseURL(cfg.BaseURL))
	}
	return opts
}
