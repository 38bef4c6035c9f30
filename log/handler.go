// Package log builds the slog loggers used by packload, including a
// handler that writes records through the host print capability.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
)

// PrintFunc writes one line of text, usually ports.HostCapabilities.Print.
type PrintFunc func(text string)

// PrintHandler implements slog.Handler by serializing each record as a
// LogMessageWire JSON line handed to a PrintFunc.
type PrintHandler struct {
	print PrintFunc
	attrs []LogAttrWire
	group string
	opts  handlerConfig
}

// HandlerOption configures the PrintHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file:line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewPrintHandler creates a PrintHandler writing through print.
func NewPrintHandler(print PrintFunc, opts ...HandlerOption) *PrintHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PrintHandler{print: print, opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrintHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle serializes record and prints it as a single line.
func (h *PrintHandler) Handle(_ context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		msg.Source = fmt.Sprintf("%s:%d", frame.File, frame.Line)
	}

	msg.Attrs = append(msg.Attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = appendAttrWire(msg.Attrs, h.group, attr)
		return true
	})

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("log: failed to marshal record: %w", err)
	}
	h.print(string(line))
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrintHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]LogAttrWire, len(h.attrs), len(h.attrs)+len(attrs))
	copy(clone.attrs, h.attrs)
	for _, attr := range attrs {
		clone.attrs = appendAttrWire(clone.attrs, h.group, attr)
	}
	return &clone
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *PrintHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
