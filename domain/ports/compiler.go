package ports

import (
	"context"

	"github.com/reglet-dev/packload/domain/entities"
)

// ModuleCompiler decodes a packed module and compiles it without linking.
type ModuleCompiler interface {
	// Compile decodes bin and compiles it. source names the module for
	// diagnostics and is recorded on the result.
	Compile(ctx context.Context, source string, bin []byte) (*entities.CompiledModule, error)

	// Close releases the runtime and every module it compiled.
	Close(ctx context.Context) error
}

// ScriptEvaluator evaluates source text in a persistent global scope.
type ScriptEvaluator interface {
	Eval(ctx context.Context, name, source string) error
}
