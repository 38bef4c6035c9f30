package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/packload/config"
	"github.com/reglet-dev/packload/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, dir, name string, bin []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bin, 0o600))
	return path
}

func TestRun_PrintsOneLinePerModule(t *testing.T) {
	dir := t.TempDir()
	plain := writeModule(t, dir, "plain.wasm", testutil.Module(testutil.WithExports("add")))
	packed := writeModule(t, dir, "packed.wasm.gz", testutil.Gzip(t, testutil.Module(
		testutil.WithExports("run"),
		testutil.WithImports(testutil.Import{Module: "env", Name: "log"}),
	)))

	var stdout, stderr bytes.Buffer
	code := run(t.Context(), []string{plain, packed}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)

	var first, second moduleLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, plain, first.URL)
	assert.Equal(t, "onFinishLoadWebAssembly_0", first.CallbackName)
	assert.Equal(t, []string{"add"}, first.Exports)
	assert.NotEmpty(t, first.Digest)

	assert.Equal(t, packed, second.URL)
	assert.Equal(t, "onFinishLoadWebAssembly_1", second.CallbackName)
	assert.Equal(t, []string{"run"}, second.Exports)
	assert.Equal(t, []string{"env.log"}, second.Imports)
}

func TestRun_CustomPrefixFromConfig(t *testing.T) {
	dir := t.TempDir()
	mod := writeModule(t, dir, "m.wasm", testutil.Module())
	cfgPath := filepath.Join(dir, "packload.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("loader:\n  callback_prefix: cb_\nworker:\n  concurrency: 2\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(t.Context(), []string{"-c", cfgPath, mod}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var line moduleLine
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &line))
	assert.Equal(t, "cb_0", line.CallbackName)
}

func TestRun_WorkerFaultIsFatal(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.wasm")

	code := run(t.Context(), []string{missing}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "worker failed")
}

func TestRun_Schema(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(t.Context(), []string{"--schema"}, &stdout, &stderr)
	require.Equal(t, 0, code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &schema))
	assert.Contains(t, schema, "properties")
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(t.Context(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: packload")

	assert.Equal(t, 2, run(t.Context(), []string{"--bogus"}, &stdout, &stderr))
}

func TestRun_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "packload.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("worker:\n  concurrency: 0\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(t.Context(), []string{"-c", cfgPath, "m.wasm"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "worker.concurrency")
}

func TestNewHost_PrintFollowsLogConfig(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   string
	}{
		{"below level is dropped", "warn", "text", ""},
		{"text records", "info", "text", "msg=hello"},
		{"print format falls back to json", "info", "print", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Host.Environment = "web"
			cfg.Log.Level = tt.level
			cfg.Log.Format = tt.format

			var console bytes.Buffer
			host, err := newHost(cfg, &console)
			require.NoError(t, err)

			host.Print("hello")
			if tt.want == "" {
				assert.Empty(t, console.String())
				return
			}
			assert.Contains(t, console.String(), tt.want)
		})
	}
}

func TestRun_PrintFormatKeepsStdoutClean(t *testing.T) {
	dir := t.TempDir()
	mod := writeModule(t, dir, "m.wasm", testutil.Module(testutil.WithExports("add")))
	cfgPath := filepath.Join(dir, "packload.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("host:\n  environment: server\nlog:\n  level: debug\n  format: print\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(t.Context(), []string{"-c", cfgPath, mod}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1, "stdout carries only module lines")
	var line moduleLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, []string{"add"}, line.Exports)

	assert.Contains(t, stderr.String(), `"message":"packload: host bound"`, "log records go through the host print")
}
