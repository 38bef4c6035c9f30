package entities

// Environment identifies the kind of host the loader is running in.
// Exactly one environment is selected per process.
type Environment string

const (
	// EnvironmentWeb is an interactive page with a windowing object.
	EnvironmentWeb Environment = "web"
	// EnvironmentWorker is a background worker exposing a script-importing function.
	EnvironmentWorker Environment = "worker"
	// EnvironmentShell is an embedded command-line shell with host read/print primitives.
	EnvironmentShell Environment = "shell"
	// EnvironmentServer is a server-side host with filesystem and module loading.
	EnvironmentServer Environment = "server"
)

// Environments lists every known environment in detection precedence order.
var Environments = []Environment{
	EnvironmentWeb,
	EnvironmentWorker,
	EnvironmentServer,
	EnvironmentShell,
}

// String implements fmt.Stringer.
func (e Environment) String() string {
	return string(e)
}

// IsValid reports whether e is one of the known environments.
func (e Environment) IsValid() bool {
	for _, known := range Environments {
		if e == known {
			return true
		}
	}
	return false
}

// Indicators records which host-specific globals were found when probing.
type Indicators struct {
	// HasWindow is set when a windowing object is present.
	HasWindow bool `json:"has_window"`
	// HasImportScripts is set when a script-importing function is present.
	HasImportScripts bool `json:"has_import_scripts"`
	// HasProcess is set when a process object is present.
	HasProcess bool `json:"has_process"`
	// HasRequire is set when a module-loading function is present.
	HasRequire bool `json:"has_require"`
	// HasShell is set when embedded shell primitives (read, readbuffer, print) are present.
	HasShell bool `json:"has_shell"`
}
