package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/reglet-dev/packload/config"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogAttrWire(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		wantType string
		wantVal  string
	}{
		{name: "string", attr: slog.String("key", "value"), wantType: "string", wantVal: "value"},
		{name: "int64", attr: slog.Int64("key", 123), wantType: "int64", wantVal: "123"},
		{name: "uint64", attr: slog.Uint64("key", 7), wantType: "uint64", wantVal: "7"},
		{name: "bool", attr: slog.Bool("key", true), wantType: "bool", wantVal: "true"},
		{name: "float64", attr: slog.Float64("key", 1.23), wantType: "float64", wantVal: "1.230000"},
		{
			name:     "time",
			attr:     slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantType: "time",
			wantVal:  "2024-01-01T00:00:00Z",
		},
		{name: "duration", attr: slog.Duration("key", time.Hour), wantType: "duration", wantVal: "1h0m0s"},
		{name: "error", attr: slog.Any("key", errors.New("test error")), wantType: "error", wantVal: "test error"},
		{name: "nil", attr: slog.Any("key", nil), wantType: "any", wantVal: "<nil>"},
		{name: "json", attr: slog.Any("key", []string{"a", "b"}), wantType: "json", wantVal: `["a","b"]`},
		{name: "log valuer", attr: slog.Any("key", logValuer{val: "resolved"}), wantType: "string", wantVal: "resolved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := toLogAttrWire(tt.attr)
			assert.Equal(t, "key", wire.Key)
			assert.Equal(t, tt.wantType, wire.Type)
			assert.Equal(t, tt.wantVal, wire.Value)
		})
	}
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestAppendAttrWire_FlattensGroups(t *testing.T) {
	attrs := appendAttrWire(nil, "", slog.Group("module",
		slog.String("name", "demo"),
		slog.Group("size", slog.Int("bytes", 42)),
	))
	require.Len(t, attrs, 2)
	assert.Equal(t, "module.name", attrs[0].Key)
	assert.Equal(t, "module.size.bytes", attrs[1].Key)

	assert.Empty(t, appendAttrWire(nil, "", slog.Attr{}))
}

// capture collects printed lines.
type capture struct {
	lines []string
}

func (c *capture) print(text string) {
	c.lines = append(c.lines, text)
}

func (c *capture) decode(t *testing.T, i int) LogMessageWire {
	t.Helper()
	require.Greater(t, len(c.lines), i)
	var msg LogMessageWire
	require.NoError(t, json.Unmarshal([]byte(c.lines[i]), &msg))
	return msg
}

func TestPrintHandler_Handle(t *testing.T) {
	c := &capture{}
	logger := slog.New(NewPrintHandler(c.print, WithSource(true)))

	logger.With("component", "worker").WithGroup("job").Info("compiled", "callback_name", "onFinishLoadWebAssembly_0")

	require.Len(t, c.lines, 1)
	assert.False(t, strings.Contains(c.lines[0], "\n"))

	msg := c.decode(t, 0)
	assert.Equal(t, "INFO", msg.Level)
	assert.Equal(t, "compiled", msg.Message)
	assert.Contains(t, msg.Source, "log_test.go")
	require.Len(t, msg.Attrs, 2)
	assert.Equal(t, LogAttrWire{Key: "component", Type: "string", Value: "worker"}, msg.Attrs[0])
	assert.Equal(t, LogAttrWire{Key: "job.callback_name", Type: "string", Value: "onFinishLoadWebAssembly_0"}, msg.Attrs[1])
}

func TestPrintHandler_Level(t *testing.T) {
	c := &capture{}
	logger := slog.New(NewPrintHandler(c.print))

	logger.Debug("hidden")
	logger.Warn("shown")

	require.Len(t, c.lines, 1)
	assert.Equal(t, "WARN", c.decode(t, 0).Level)

	h := NewPrintHandler(c.print, WithLevel(slog.LevelDebug))
	assert.True(t, h.Enabled(t.Context(), slog.LevelDebug))
}

func TestPrintHandler_WithAttrsDoesNotShare(t *testing.T) {
	c := &capture{}
	base := slog.New(NewPrintHandler(c.print)).With("a", 1)

	base.With("b", 2).Info("first")
	base.With("c", 3).Info("second")

	assert.Len(t, c.decode(t, 0).Attrs, 2)
	second := c.decode(t, 1)
	require.Len(t, second.Attrs, 2)
	assert.Equal(t, "c", second.Attrs[1].Key)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	var ce *domainerrors.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestNew(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(config.LogConfig{Level: "info", Format: "text"}, &buf, nil)
		require.NoError(t, err)
		logger.Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "msg=hello k=v")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf, nil)
		require.NoError(t, err)
		logger.Debug("hello")
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "hello", rec["msg"])
	})

	t.Run("print", func(t *testing.T) {
		c := &capture{}
		logger, err := New(config.LogConfig{Level: "info", Format: "print"}, nil, c.print)
		require.NoError(t, err)
		logger.Info("hello")
		assert.Equal(t, "hello", c.decode(t, 0).Message)
	})

	t.Run("print without capability", func(t *testing.T) {
		_, err := New(config.LogConfig{Level: "info", Format: "print"}, nil, nil)
		var ce *domainerrors.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "log.format", ce.Field)
	})
}
