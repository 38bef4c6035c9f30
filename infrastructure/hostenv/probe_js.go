//go:build js && wasm

package hostenv

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/reglet-dev/packload/domain/entities"
)

// Probe inspects the JavaScript global object for host-specific globals.
func Probe() entities.Indicators {
	g := js.Global()
	return entities.Indicators{
		HasWindow:        isType(g, "window", js.TypeObject),
		HasImportScripts: isType(g, "importScripts", js.TypeFunction),
		HasProcess:       isType(g, "process", js.TypeObject),
		HasRequire:       isType(g, "require", js.TypeFunction),
		HasShell: isType(g, "read", js.TypeFunction) ||
			isType(g, "readbuffer", js.TypeFunction) ||
			isType(g, "print", js.TypeFunction),
	}
}

func platformImportScripts() ImportScriptsFunc {
	g := js.Global()
	if !isType(g, "importScripts", js.TypeFunction) {
		return nil
	}
	return func(_ context.Context, locator string) (err error) {
		defer recoverJS(&err)
		g.Call("importScripts", locator)
		return nil
	}
}

func platformShellPrimitives() ShellPrimitives {
	g := js.Global()
	var prims ShellPrimitives

	if isType(g, "read", js.TypeFunction) {
		prims.Read = func(locator string, binary bool) (data []byte, err error) {
			defer recoverJS(&err)
			if !binary {
				return []byte(g.Call("read", locator).String()), nil
			}
			return copyBytes(g.Call("read", locator, "binary")), nil
		}
	}
	if isType(g, "readbuffer", js.TypeFunction) {
		prims.ReadBuffer = func(locator string) (data []byte, err error) {
			defer recoverJS(&err)
			buf := g.Call("readbuffer", locator)
			return copyBytes(g.Get("Uint8Array").New(buf)), nil
		}
	}
	if isType(g, "print", js.TypeFunction) {
		prims.Print = func(text string) {
			g.Call("print", text)
		}
	}
	return prims
}

func isType(v js.Value, name string, t js.Type) bool {
	return v.Get(name).Type() == t
}

func copyBytes(arr js.Value) []byte {
	out := make([]byte, arr.Get("length").Int())
	js.CopyBytesToGo(out, arr)
	return out
}

// recoverJS turns a thrown JavaScript exception into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("javascript exception: %v", r)
	}
}
