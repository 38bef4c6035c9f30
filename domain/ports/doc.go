// Package ports defines the interfaces the loader and worker depend on.
// Infrastructure adapters implement them; domain logic never imports an
// adapter directly.
package ports
