package wazero

import (
	"context"
	"testing"

	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/reglet-dev/packload/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tetratelabs/wazero"
)

type CompilerSuite struct {
	suite.Suite
	ctx      context.Context
	compiler *Compiler
}

func (s *CompilerSuite) SetupTest() {
	s.ctx = context.Background()
	c, err := NewCompiler(s.ctx)
	s.Require().NoError(err)
	s.compiler = c
}

func (s *CompilerSuite) TearDownTest() {
	s.Require().NoError(s.compiler.Close(s.ctx))
}

func (s *CompilerSuite) TestCompileRawModule() {
	bin := testutil.Module(
		testutil.WithExports("run", "init"),
		testutil.WithMemory("memory"),
		testutil.WithName("demo"),
	)

	mod, err := s.compiler.Compile(s.ctx, "demo.wasm", bin)
	s.Require().NoError(err)
	s.Equal("demo.wasm", mod.Source)
	s.Equal("demo", mod.Name)
	s.Equal([]string{"init", "run"}, mod.Exports)
	s.Equal([]string{"memory"}, mod.Memories)
	s.Equal(len(bin), mod.Size)
	s.Len(mod.Digest, 64)

	_, ok := mod.Handle.(wazero.CompiledModule)
	s.True(ok, "handle is the wazero compiled module")
	s.NoError(mod.Close(s.ctx))
}

func (s *CompilerSuite) TestCompileLeavesImportsUnlinked() {
	bin := testutil.Module(
		testutil.WithImports(testutil.Import{Module: "env", Name: "log"}, testutil.Import{Module: "env", Name: "abort"}),
		testutil.WithExports("main"),
	)

	mod, err := s.compiler.Compile(s.ctx, "linked-later.wasm", bin)
	s.Require().NoError(err)
	s.Equal([]string{"env.log", "env.abort"}, mod.Imports)
	s.Equal([]string{"main"}, mod.Exports)

	// nothing provides "env", so instantiation must fail until the caller links it
	_, err = s.compiler.Runtime().InstantiateModule(s.ctx, mod.Handle.(wazero.CompiledModule), wazero.NewModuleConfig())
	s.Error(err)
}

func (s *CompilerSuite) TestCompileGzipPacked() {
	bin := testutil.Module(testutil.WithExports("run"))
	packed := testutil.Gzip(s.T(), bin)

	mod, err := s.compiler.Compile(s.ctx, "module.wpack", packed)
	s.Require().NoError(err)
	s.Equal(len(bin), mod.Size, "size is measured after decoding")
	s.Equal([]string{"run"}, mod.Exports)
}

func (s *CompilerSuite) TestCompileRejectsNonWasm() {
	_, err := s.compiler.Compile(s.ctx, "page.html", []byte("<html></html>"))
	s.Require().Error(err)
	s.ErrorIs(err, domainerrors.ErrNotWasm)

	var ce *domainerrors.CompileError
	s.Require().ErrorAs(err, &ce)
	s.Equal("decode", ce.Stage)
	s.Equal("page.html", ce.Source)
}

func (s *CompilerSuite) TestCompileRejectsCorruptModule() {
	bin := append(append([]byte(nil), testutil.Magic...), 0x01, 0xff) // truncated type section

	_, err := s.compiler.Compile(s.ctx, "broken.wasm", bin)
	var ce *domainerrors.CompileError
	s.Require().ErrorAs(err, &ce)
	s.Equal("compile", ce.Stage)
}

func (s *CompilerSuite) TestCompileRejectsCorruptGzip() {
	_, err := s.compiler.Compile(s.ctx, "broken.wpack", []byte{0x1f, 0x8b, 0x00})
	var ce *domainerrors.CompileError
	s.Require().ErrorAs(err, &ce)
	s.Equal("decode", ce.Stage)
}

func TestCompilerSuite(t *testing.T) {
	suite.Run(t, new(CompilerSuite))
}

func TestCompiler_MaxDecodedSize(t *testing.T) {
	ctx := context.Background()
	c, err := NewCompiler(ctx, WithMaxDecodedSize(8))
	require.NoError(t, err)
	defer c.Close(ctx)

	packed := testutil.Gzip(t, testutil.Module(testutil.WithExports("run")))
	_, err = c.Compile(ctx, "big.wpack", packed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
}

func TestCompiler_CacheDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewCompiler(ctx, WithCacheDir(dir), WithMemoryLimitPages(16))
	require.NoError(t, err)
	_, err = c.Compile(ctx, "cached.wasm", testutil.Module(testutil.WithExports("run")))
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))
}

func TestDefaultCompilerConfig(t *testing.T) {
	cfg := defaultCompilerConfig()
	assert.True(t, cfg.CloseOnContextDone)
	assert.Equal(t, int64(256<<20), cfg.MaxDecodedSize)
	assert.Zero(t, cfg.MemoryLimitPages)
}

func TestRequestIDContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := RequestIDFromContext(WithRequestID(context.Background(), "cb_7"))
	assert.True(t, ok)
	assert.Equal(t, "cb_7", id)
}
