package entities

import "strings"

// Error types carried in ErrorDetail.Type.
const (
	ErrorTypeInit     = "init"
	ErrorTypeProtocol = "protocol"
	ErrorTypeFetch    = "fetch"
	ErrorTypeDecode   = "decode"
	ErrorTypeCompile  = "compile"
	ErrorTypeConfig   = "config"
	ErrorTypeInternal = "internal"
)

// ErrorDetail is the serializable form of an error chain. The worker posts
// it in place of a Go error so the loader sees every layer of a failure.
type ErrorDetail struct {
	// Cause is the next error down the chain, if any.
	Cause *ErrorDetail `json:"cause,omitempty"`

	// Details holds named facts about the failure, such as "locator" or "status".
	Details map[string]string `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`

	// Code identifies what failed: a locator, callback name or config field.
	Code string `json:"code,omitempty"`

	// IsNotFound reports that the locator did not resolve to a resource.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// NewErrorDetail creates an ErrorDetail of the given type.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}

// Error renders the chain outermost first, e.g.
// "fetch: server read a.wasm failed [a.wasm]: open a.wasm: no such file".
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	for d := e; d != nil; d = d.Cause {
		if d != e {
			b.WriteString(": ")
		}
		if d.Type != "" && d.Type != ErrorTypeInternal {
			b.WriteString(d.Type)
			b.WriteString(": ")
		}
		b.WriteString(d.Message)
		if d.Code != "" {
			b.WriteString(" [")
			b.WriteString(d.Code)
			b.WriteString("]")
		}
	}
	return b.String()
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *ErrorDetail) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Root returns the innermost error of the chain.
func (e *ErrorDetail) Root() *ErrorDetail {
	for e != nil && e.Cause != nil {
		e = e.Cause
	}
	return e
}

// WithCode sets Code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithDetail records a named fact. Empty values are skipped.
func (e *ErrorDetail) WithDetail(key, value string) *ErrorDetail {
	if value == "" {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithCause sets Cause and returns e.
func (e *ErrorDetail) WithCause(cause *ErrorDetail) *ErrorDetail {
	e.Cause = cause
	return e
}
