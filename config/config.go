// Package config loads and validates the packload configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader" json:"loader"`
	Host    HostConfig    `yaml:"host" json:"host"`
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Worker  WorkerConfig  `yaml:"worker" json:"worker"`
}

// LoaderConfig configures the module loader.
type LoaderConfig struct {
	CallbackPrefix string `yaml:"callback_prefix" json:"callback_prefix" validate:"required,jsident" jsonschema:"description=Prefix of generated callback names"`
	QueueSize      int    `yaml:"queue_size" json:"queue_size" validate:"min=1,max=4096" jsonschema:"description=Delivery buffer per direction; posting never waits on it,minimum=1,maximum=4096"`
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1,max=64" jsonschema:"description=Modules fetched and compiled at once,minimum=1,maximum=64"`
}

// HostConfig configures host detection and the bound capabilities.
type HostConfig struct {
	Environment string        `yaml:"environment" json:"environment" validate:"oneof=auto web worker shell server" jsonschema:"enum=auto,enum=web,enum=worker,enum=shell,enum=server,description=Host environment; auto probes the process"`
	BaseDir     string        `yaml:"base_dir" json:"base_dir,omitempty" jsonschema:"description=Directory relative paths fall back from (<base_dir>/../src)"`
	BaseURL     string        `yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url" jsonschema:"description=URL relative locators resolve against in web hosts"`
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" validate:"gte=0" jsonschema:"type=string,description=Timeout of each synchronous fetch (e.g. 30s)"`
}

// RuntimeConfig configures the wazero runtime that compiles modules.
type RuntimeConfig struct {
	CacheDir           string `yaml:"cache_dir" json:"cache_dir,omitempty" jsonschema:"description=On-disk compilation cache; empty disables it"`
	MaxDecodedSize     int64  `yaml:"max_decoded_size" json:"max_decoded_size" validate:"min=1" jsonschema:"description=Largest module a packed resource may inflate to in bytes,minimum=1"`
	MemoryLimitPages   uint32 `yaml:"memory_limit_pages" json:"memory_limit_pages" validate:"max=65536" jsonschema:"description=Memory limit in 64KiB pages; 0 keeps the runtime default,maximum=65536"`
	CloseOnContextDone bool   `yaml:"close_on_context_done" json:"close_on_context_done"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json print" jsonschema:"enum=text,enum=json,enum=print,description=print routes records through the host print capability (stderr in the CLI)"`
}

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

// jsIdentifier matches names usable as a global function in the host.
var jsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// callback names become host globals
	_ = v.RegisterValidation("jsident", func(fl validator.FieldLevel) bool {
		return jsIdentifier.MatchString(fl.Field().String())
	})
	// report fields by their YAML names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			CallbackPrefix: "onFinishLoadWebAssembly_",
			QueueSize:      16,
		},
		Worker: WorkerConfig{
			Concurrency: 1,
		},
		Host: HostConfig{
			Environment: "auto",
			HTTPTimeout: 30 * time.Second,
		},
		Runtime: RuntimeConfig{
			MaxDecodedSize:     256 << 20,
			CloseOnContextDone: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads, parses and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
// Fields absent from data keep their default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domainerrors.ConfigError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint. The first violation is returned
// as a *errors.ConfigError naming the field by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		return &domainerrors.ConfigError{Field: field, Err: fmt.Errorf("failed on '%s' rule", fe.Tag())}
	}
	return &domainerrors.ConfigError{Err: err}
}
