// Package hostenv detects the host environment the loader runs in and binds
// the matching host capability set.
//
// Four environments are known: an interactive page (web), a background
// worker, an embedded command-line shell, and a server-side host. Detection
// runs once at startup from probed indicators; binding then selects one
// polymorphic implementation of ports.HostCapabilities. A missing required
// primitive is an initialization fault reported at bind time.
//
// # Basic Usage
//
//	host, err := hostenv.New(
//	    hostenv.WithBaseURL("https://cdn.example.com/modules/"),
//	    hostenv.WithHTTPTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err) // unknown environment or missing primitive
//	}
//	bin, err := host.ReadBinary(ctx, "module.wpack")
package hostenv
