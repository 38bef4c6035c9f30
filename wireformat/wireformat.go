// Package wireformat defines the messages exchanged between the loader and
// its background worker. The request id travels in both directions; it is
// the only correlation between a reply and the pending job it resolves.
package wireformat

import (
	"fmt"

	"github.com/reglet-dev/packload/domain/entities"
)

// ErrorDetail is the structured error carried by a worker fault.
type ErrorDetail = entities.ErrorDetail

// LoadRequestWire asks the worker to fetch and compile the module at URL.
// Main to worker.
type LoadRequestWire struct {
	RequestID string `json:"callback_name"`
	URL       string `json:"url"`
}

// LoadReplyWire carries a compiled module back to the loader.
// Worker to main.
type LoadReplyWire struct {
	Module    *entities.CompiledModule `json:"data"`
	RequestID string                   `json:"callback_name"`
}

// WorkerFaultWire reports that the worker could not produce a module.
// Worker to main. RequestID is empty when the request itself was unreadable.
type WorkerFaultWire struct {
	Error     *ErrorDetail `json:"error"`
	RequestID string       `json:"callback_name,omitempty"`
	URL       string       `json:"url,omitempty"`
}

// String implements fmt.Stringer so faults read well inside protocol errors.
func (f WorkerFaultWire) String() string {
	if f.URL != "" {
		return fmt.Sprintf("%s [%s]: %v", f.URL, f.RequestID, f.Error)
	}
	return fmt.Sprintf("[%s]: %v", f.RequestID, f.Error)
}
