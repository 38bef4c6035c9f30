// Package wazero compiles packed WebAssembly modules with the wazero runtime.
//
// A packed module is either a raw WebAssembly binary or a gzip stream that
// inflates to one. Compilation stops short of instantiation: the result holds
// machine code with every import still unresolved, ready to be linked later
// against the same runtime.
//
// # Basic Usage
//
//	compiler, err := wazero.NewCompiler(ctx,
//	    wazero.WithMemoryLimitPages(256),
//	    wazero.WithCacheDir("/var/cache/packload"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer compiler.Close(ctx)
//
//	mod, err := compiler.Compile(ctx, "module.wpack", packed)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(mod.Exports)
package wazero
