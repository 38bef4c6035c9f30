// Package loader fetches packed WebAssembly modules through a background
// worker and resolves a Job with the compiled, unlinked module.
//
// Every call to LoadPackedModule creates a Job under a freshly generated
// callback name. The name travels to the worker as the request id and comes
// back on the reply, so replies can arrive in any order. A Job resolves at
// most once; a second completion report for the same name is a protocol
// violation, as is any reply the loader cannot parse.
//
// Jobs have no timeout and cannot be cancelled. A Job whose reply never
// arrives stays pending for the life of the Loader.
//
// # Basic Usage
//
//	mainPort, workerPort := msgport.Pipe(16)
//	go worker.New(workerPort, host, compiler).Run(ctx)
//
//	l := loader.New(mainPort)
//	go l.Run(ctx)
//
//	job, err := l.LoadPackedModule(ctx, "module.wpack")
//	if err != nil {
//	    return err
//	}
//	job.Then(func(mod *entities.CompiledModule) {
//	    fmt.Println(mod.Exports)
//	})
package loader
