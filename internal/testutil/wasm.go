// Package testutil provides WebAssembly fixtures and helpers shared by tests.
package testutil

import (
	"bytes"
	"compress/gzip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Magic is the WebAssembly binary header (magic + version 1).
var Magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Import names an imported function.
type Import struct {
	Module string
	Name   string
}

type moduleLayout struct {
	name    string
	exports []string
	imports []Import
	memory  string
}

// ModuleOption configures a fixture built by Module.
type ModuleOption func(*moduleLayout)

// WithExports adds exported no-op functions of type () -> ().
func WithExports(names ...string) ModuleOption {
	return func(s *moduleLayout) {
		s.exports = append(s.exports, names...)
	}
}

// WithImports adds imported functions of type () -> ().
func WithImports(imports ...Import) ModuleOption {
	return func(s *moduleLayout) {
		s.imports = append(s.imports, imports...)
	}
}

// WithMemory adds a one-page memory exported under name.
func WithMemory(name string) ModuleOption {
	return func(s *moduleLayout) {
		s.memory = name
	}
}

// WithName sets the module name in the custom name section.
func WithName(name string) ModuleOption {
	return func(s *moduleLayout) {
		s.name = name
	}
}

// Module builds a valid WebAssembly binary.
func Module(opts ...ModuleOption) []byte {
	var layout moduleLayout
	for _, opt := range opts {
		opt(&layout)
	}

	out := append([]byte(nil), Magic...)

	// type 0: () -> ()
	out = appendSection(out, 1, []byte{0x01, 0x60, 0x00, 0x00})

	if len(layout.imports) > 0 {
		content := uleb(uint32(len(layout.imports)))
		for _, imp := range layout.imports {
			content = appendName(content, imp.Module)
			content = appendName(content, imp.Name)
			content = append(content, 0x00, 0x00) // func, type 0
		}
		out = appendSection(out, 2, content)
	}

	if len(layout.exports) > 0 {
		content := uleb(uint32(len(layout.exports)))
		for range layout.exports {
			content = append(content, 0x00)
		}
		out = appendSection(out, 3, content)
	}

	if layout.memory != "" {
		out = appendSection(out, 5, []byte{0x01, 0x00, 0x01}) // min 1 page, no max
	}

	count := len(layout.exports)
	if layout.memory != "" {
		count++
	}
	if count > 0 {
		content := uleb(uint32(count))
		for i, name := range layout.exports {
			content = appendName(content, name)
			content = append(content, 0x00)
			content = append(content, uleb(uint32(len(layout.imports)+i))...)
		}
		if layout.memory != "" {
			content = appendName(content, layout.memory)
			content = append(content, 0x02, 0x00)
		}
		out = appendSection(out, 7, content)
	}

	if len(layout.exports) > 0 {
		content := uleb(uint32(len(layout.exports)))
		for range layout.exports {
			content = append(content, 0x02, 0x00, 0x0b) // size, no locals, end
		}
		out = appendSection(out, 10, content)
	}

	if layout.name != "" {
		sub := appendName(nil, layout.name)
		content := appendName(nil, "name")
		content = append(content, 0x00)
		content = append(content, uleb(uint32(len(sub)))...)
		content = append(content, sub...)
		out = appendSection(out, 0, content)
	}

	return out
}

// Gzip compresses b, the packed form accepted by the compiler.
func Gzip(t testing.TB, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// RequireClosed fails the test if ch is not closed within d.
func RequireClosed(t testing.TB, ch <-chan struct{}, d time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		require.FailNow(t, "channel not closed in time", msgAndArgs...)
	}
}

// RequireOpen fails the test if ch closes within d.
func RequireOpen(t testing.TB, ch <-chan struct{}, d time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
		require.FailNow(t, "channel closed unexpectedly", msgAndArgs...)
	case <-time.After(d):
	}
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func appendName(out []byte, name string) []byte {
	out = append(out, uleb(uint32(len(name)))...)
	return append(out, name...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
