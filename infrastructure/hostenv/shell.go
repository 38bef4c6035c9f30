package hostenv

import (
	"context"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
)

// ShellHost delegates I/O to the primitives of an embedded shell.
type ShellHost struct {
	prims ShellPrimitives
	scriptLoader
}

// Environment implements ports.HostCapabilities.
func (h *ShellHost) Environment() entities.Environment {
	return entities.EnvironmentShell
}

// Read returns the file as text through the shell's read primitive.
func (h *ShellHost) Read(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := h.prims.Read(locator, false)
	if err != nil {
		return "", h.fetchError(locator, err)
	}
	return string(data), nil
}

// ReadBinary returns the file bytes, preferring readbuffer over read.
func (h *ShellHost) ReadBinary(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if h.prims.ReadBuffer != nil {
		data, err = h.prims.ReadBuffer(locator)
	} else {
		data, err = h.prims.Read(locator, true)
	}
	if err != nil {
		return nil, h.fetchError(locator, err)
	}
	return data, nil
}

// Load reads the script and evaluates it globally.
func (h *ShellHost) Load(ctx context.Context, locator string) error {
	return h.loadScript(ctx, locator)
}

// Print forwards to the shell's print primitive, or does nothing without one.
func (h *ShellHost) Print(text string) {
	if h.prims.Print != nil {
		h.prims.Print(text)
	}
}

func (h *ShellHost) fetchError(locator string, err error) error {
	return &domainerrors.FetchError{Err: err, Locator: locator, Environment: entities.EnvironmentShell}
}
