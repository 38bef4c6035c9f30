// Package entities provides the core domain types shared by the loader,
// the background worker and the host adapters.
package entities
