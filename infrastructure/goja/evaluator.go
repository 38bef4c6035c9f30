// Package goja evaluates host scripts in a persistent global scope backed by
// the goja JavaScript engine. It provides the "read then evaluate globally"
// primitive used by host Load capabilities.
package goja

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/reglet-dev/packload/domain/ports"
)

// Evaluator runs scripts against a single goja runtime. Globals defined by one
// script stay visible to the next. Safe for concurrent use; evaluations are
// serialized.
type Evaluator struct {
	vm *goja.Runtime
	mu sync.Mutex
}

var _ ports.ScriptEvaluator = (*Evaluator)(nil)

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*goja.Runtime) error

// WithGlobal pre-seeds a global binding before any script runs.
func WithGlobal(name string, value any) EvaluatorOption {
	return func(vm *goja.Runtime) error {
		return vm.Set(name, value)
	}
}

// WithPrint binds a global print(...) function that forwards its joined
// arguments to fn.
func WithPrint(fn func(string)) EvaluatorOption {
	return func(vm *goja.Runtime) error {
		return vm.Set("print", func(call goja.FunctionCall) goja.Value {
			var line string
			for i, arg := range call.Arguments {
				if i > 0 {
					line += " "
				}
				line += arg.String()
			}
			fn(line)
			return goja.Undefined()
		})
	}
}

// NewEvaluator creates an Evaluator with a fresh global scope.
func NewEvaluator(opts ...EvaluatorOption) (*Evaluator, error) {
	vm := goja.New()
	for _, opt := range opts {
		if err := opt(vm); err != nil {
			return nil, fmt.Errorf("failed to configure script runtime: %w", err)
		}
	}
	return &Evaluator{vm: vm}, nil
}

// Eval runs source in the global scope. name labels the script in stack
// traces. Cancelling ctx interrupts a running script.
func (e *Evaluator) Eval(ctx context.Context, name, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		e.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			// the interrupt may have landed after the script finished
			<-fired
			e.vm.ClearInterrupt()
		}
	}()

	if _, err := e.vm.RunScript(name, source); err != nil {
		if ierr, ok := err.(*goja.InterruptedError); ok {
			if cause, ok := ierr.Value().(error); ok {
				return fmt.Errorf("script %s interrupted: %w", name, cause)
			}
		}
		return fmt.Errorf("script %s failed: %w", name, err)
	}
	return nil
}

// Global returns the exported Go value of a global binding, or nil when the
// binding is undefined.
func (e *Evaluator) Global(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vm.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v.Export()
}
