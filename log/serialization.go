package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogMessageWire is the JSON line a PrintHandler emits for each record.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
}

// LogAttrWire is a single flattened slog attribute.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}

// appendAttrWire flattens attr onto dst. Group members get dotted keys
// under prefix; empty attrs are dropped as slog handlers must.
func appendAttrWire(dst []LogAttrWire, prefix string, attr slog.Attr) []LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}

	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if prefix != "" {
		key = prefix
	}

	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			dst = appendAttrWire(dst, key, member)
		}
		return dst
	}
	return append(dst, toLogAttrWire(slog.Attr{Key: key, Value: attr.Value}))
}

// toLogAttrWire converts a resolved, non-group slog.Attr.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{Key: attr.Key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%f", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		if v == nil {
			wire.Type = "any"
			wire.Value = "<nil>"
			break
		}
		if err, isErr := v.(error); isErr {
			wire.Type = "error"
			wire.Value = err.Error()
		} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
			wire.Type = "json"
			wire.Value = string(data)
		} else {
			wire.Type = "any"
			wire.Value = fmt.Sprintf("%v", v)
		}
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}
