package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/reglet-dev/packload/config"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
)

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, &domainerrors.ConfigError{Field: "log.level", Err: err}
	}
	return level, nil
}

// New builds the logger described by cfg. Text and JSON records go to out;
// the print format sends JSON lines through print instead.
func New(cfg config.LogConfig, out io.Writer, print PrintFunc) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "print":
		if print == nil {
			return nil, &domainerrors.ConfigError{Field: "log.format", Err: fmt.Errorf("print format needs a print capability")}
		}
		return slog.New(NewPrintHandler(print, WithLevel(level))), nil
	default:
		return nil, &domainerrors.ConfigError{Field: "log.format", Err: fmt.Errorf("unknown format %q", cfg.Format)}
	}
}
