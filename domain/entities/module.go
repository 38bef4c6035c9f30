package entities

import (
	"context"
	"fmt"
)

// ModuleHandle is the runtime-specific compiled module. It is carried through
// the loader untouched.
type ModuleHandle interface {
	Close(ctx context.Context) error
}

// CompiledModule is a decoded and compiled, but not yet linked, WebAssembly module.
type CompiledModule struct {
	// Handle is the opaque runtime handle. Callers that know the runtime may
	// type-assert it; the loader never inspects it.
	Handle ModuleHandle `json:"-"`

	// Source is the locator the module was fetched from.
	Source string `json:"source"`

	// Name is the module name from the custom name section, if any.
	Name string `json:"name,omitempty"`

	// Digest is the hex sha256 of the decoded module bytes.
	Digest string `json:"digest"`

	// Exports lists exported function names, sorted.
	Exports []string `json:"exports,omitempty"`

	// Memories lists exported memory names, sorted.
	Memories []string `json:"memories,omitempty"`

	// Imports lists imported functions as "module.name", in declaration order.
	Imports []string `json:"imports,omitempty"`

	// Size is the decoded module size in bytes.
	Size int `json:"size"`
}

// Close releases the compiled code held by the handle.
func (m *CompiledModule) Close(ctx context.Context) error {
	if m == nil || m.Handle == nil {
		return nil
	}
	return m.Handle.Close(ctx)
}

// String implements fmt.Stringer.
func (m *CompiledModule) String() string {
	if m == nil {
		return "<nil module>"
	}
	return fmt.Sprintf("module %s (%d bytes, %d exports, %d imports)", m.Source, m.Size, len(m.Exports), len(m.Imports))
}
