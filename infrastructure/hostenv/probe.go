//go:build !(js && wasm)

package hostenv

import (
	"github.com/reglet-dev/packload/domain/entities"
)

// Probe reports the indicators of the running process. A native process
// always has a process object and filesystem module loading, so it is a
// server-side host.
func Probe() entities.Indicators {
	return entities.Indicators{
		HasProcess: true,
		HasRequire: true,
	}
}

// platformImportScripts returns the worker's script-importing primitive.
// Native processes have none.
func platformImportScripts() ImportScriptsFunc {
	return nil
}

// platformShellPrimitives returns the embedded shell's primitives.
// Native processes have none.
func platformShellPrimitives() ShellPrimitives {
	return ShellPrimitives{}
}
