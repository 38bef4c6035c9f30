package wazero

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/reglet-dev/packload/domain/ports"
	"github.com/tetratelabs/wazero"
)

var (
	wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}
	gzipMagic = []byte{0x1f, 0x8b}
)

// CompilerConfig holds configuration for the Compiler.
type CompilerConfig struct {
	// MemoryLimitPages caps the memory of modules compiled by this runtime.
	// Zero keeps the wazero default (65536 pages).
	MemoryLimitPages uint32

	// CacheDir enables the on-disk compilation cache when non-empty.
	CacheDir string

	// MaxDecodedSize bounds the inflated size of a packed module.
	MaxDecodedSize int64

	// CloseOnContextDone makes module calls observe context cancellation.
	CloseOnContextDone bool
}

// CompilerOption configures the Compiler.
type CompilerOption func(*CompilerConfig)

// WithMemoryLimitPages sets the memory limit in 64KiB pages.
func WithMemoryLimitPages(pages uint32) CompilerOption {
	return func(c *CompilerConfig) {
		c.MemoryLimitPages = pages
	}
}

// WithCacheDir enables the on-disk compilation cache rooted at dir.
func WithCacheDir(dir string) CompilerOption {
	return func(c *CompilerConfig) {
		c.CacheDir = dir
	}
}

// WithMaxDecodedSize bounds how large a packed module may inflate to.
func WithMaxDecodedSize(n int64) CompilerOption {
	return func(c *CompilerConfig) {
		c.MaxDecodedSize = n
	}
}

// WithCloseOnContextDone toggles context-aware module execution.
func WithCloseOnContextDone(enabled bool) CompilerOption {
	return func(c *CompilerConfig) {
		c.CloseOnContextDone = enabled
	}
}

func defaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		MaxDecodedSize:     256 << 20,
		CloseOnContextDone: true,
	}
}

// Compiler decodes packed modules and compiles them with a wazero runtime.
// Modules are compiled but never instantiated, so imports stay unresolved.
type Compiler struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	config  CompilerConfig
}

var _ ports.ModuleCompiler = (*Compiler)(nil)

// NewCompiler creates a wazero runtime configured by opts.
func NewCompiler(ctx context.Context, opts ...CompilerOption) (*Compiler, error) {
	cfg := defaultCompilerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(cfg.CloseOnContextDone)
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	c := &Compiler{config: cfg}
	if cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache: %w", err)
		}
		c.cache = cache
		rc = rc.WithCompilationCache(cache)
	}

	c.runtime = wazero.NewRuntimeWithConfig(ctx, rc)
	return c, nil
}

// Compile decodes bin and compiles it. The returned module's Handle is a
// wazero.CompiledModule owned by this compiler's runtime.
func (c *Compiler) Compile(ctx context.Context, source string, bin []byte) (*entities.CompiledModule, error) {
	decoded, err := c.decode(bin)
	if err != nil {
		return nil, &domainerrors.CompileError{Err: err, Source: source, Stage: "decode"}
	}

	compiled, err := c.runtime.CompileModule(ctx, decoded)
	if err != nil {
		return nil, &domainerrors.CompileError{Err: err, Source: source, Stage: "compile"}
	}

	sum := sha256.Sum256(decoded)
	mod := &entities.CompiledModule{
		Handle:   compiled,
		Source:   source,
		Name:     compiled.Name(),
		Digest:   hex.EncodeToString(sum[:]),
		Size:     len(decoded),
		Exports:  sortedKeys(compiled.ExportedFunctions()),
		Memories: sortedKeys(compiled.ExportedMemories()),
	}
	for _, def := range compiled.ImportedFunctions() {
		if moduleName, name, ok := def.Import(); ok {
			mod.Imports = append(mod.Imports, moduleName+"."+name)
		}
	}

	id, _ := RequestIDFromContext(ctx)
	slog.DebugContext(ctx, "wazero: compiled module",
		"request_id", id, "source", source, "size", mod.Size,
		"exports", len(mod.Exports), "imports", len(mod.Imports))
	return mod, nil
}

// Close releases the runtime, every module it compiled, and the cache.
func (c *Compiler) Close(ctx context.Context) error {
	err := c.runtime.Close(ctx)
	if c.cache != nil {
		if cerr := c.cache.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Runtime exposes the underlying runtime so callers can link and instantiate
// the compiled modules it produced.
func (c *Compiler) Runtime() wazero.Runtime {
	return c.runtime
}

// decode unwraps a gzip-packed module and checks the wasm header.
func (c *Compiler) decode(bin []byte) ([]byte, error) {
	if bytes.HasPrefix(bin, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(bin))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()

		inflated, err := io.ReadAll(io.LimitReader(zr, c.config.MaxDecodedSize+1))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if int64(len(inflated)) > c.config.MaxDecodedSize {
			return nil, fmt.Errorf("packed module exceeds %d bytes", c.config.MaxDecodedSize)
		}
		bin = inflated
	}

	if !bytes.HasPrefix(bin, wasmMagic) {
		return nil, domainerrors.ErrNotWasm
	}
	return bin, nil
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
