package hostenv

import (
	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
)

// Detect classifies the host from probed indicators. Precedence is web,
// worker, server, shell; a server needs both a process object and a module
// loader. Nothing matching is an unrecoverable initialization fault.
func Detect(ind entities.Indicators) (entities.Environment, error) {
	switch {
	case ind.HasWindow:
		return entities.EnvironmentWeb, nil
	case ind.HasImportScripts:
		return entities.EnvironmentWorker, nil
	case ind.HasProcess && ind.HasRequire:
		return entities.EnvironmentServer, nil
	case ind.HasShell:
		return entities.EnvironmentShell, nil
	default:
		return "", &domainerrors.InitError{Err: domainerrors.ErrUnknownEnvironment}
	}
}
