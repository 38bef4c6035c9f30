package ports

import (
	"context"

	"github.com/reglet-dev/packload/domain/entities"
)

// HostCapabilities is the capability set bound once per process for the
// detected host environment. Implementations are immutable after binding.
type HostCapabilities interface {
	// Environment reports which environment the capabilities were bound for.
	Environment() entities.Environment

	// Read returns the resource named by locator decoded as text.
	Read(ctx context.Context, locator string) (string, error)

	// ReadBinary returns the raw bytes of the resource named by locator.
	ReadBinary(ctx context.Context, locator string) ([]byte, error)

	// Load reads the script named by locator and evaluates it in the global scope.
	Load(ctx context.Context, locator string) error

	// Print writes one line of text to the host's output.
	Print(text string)
}
