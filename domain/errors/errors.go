// Package errors provides domain-specific error types for the loader.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/reglet-dev/packload/domain/entities"
)

// Sentinel causes. Match them with errors.Is.
var (
	// ErrUnknownEnvironment means no host environment could be detected.
	ErrUnknownEnvironment = stdErrors.New("unknown runtime environment")

	// ErrMissingPrimitive means a host primitive required by the selected environment is absent.
	ErrMissingPrimitive = stdErrors.New("missing host primitive")

	// ErrBadJob means a completion report named a callback that is not pending.
	ErrBadJob = stdErrors.New("bad job")

	// ErrMalformedReply means the worker posted a message of an unexpected shape.
	ErrMalformedReply = stdErrors.New("malformed worker reply")

	// ErrWorkerFault means the worker reported that it failed to produce a module.
	ErrWorkerFault = stdErrors.New("worker failed")

	// ErrNotWasm means a decoded resource does not carry the WebAssembly magic header.
	ErrNotWasm = stdErrors.New("not a WebAssembly binary")
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return entities.NewErrorDetail(entities.ErrorTypeInternal, err.Error())
}

// causeDetail converts the cause of a typed error for ErrorDetail.Cause.
func causeDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}
	return ToErrorDetail(err)
}

// InitError is an unrecoverable initialization fault raised while detecting
// the host environment or binding its capabilities.
type InitError struct {
	Err         error
	Environment entities.Environment
	Primitive   string
}

func (e *InitError) Error() string {
	switch {
	case e.Primitive != "":
		return fmt.Sprintf("%s host: no %s() available: %v", e.Environment, e.Primitive, e.Err)
	case e.Environment != "":
		return fmt.Sprintf("%s host: %v", e.Environment, e.Err)
	default:
		return fmt.Sprintf("%v. Where are we?", e.Err)
	}
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InitError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeInit, e.Error()).
		WithCode(string(e.Environment)).
		WithDetail("primitive", e.Primitive)
}

// ProtocolError is a violation of the loader/worker message protocol.
// It is always a programming or peer error, never retried.
type ProtocolError struct {
	Err          error
	CallbackName string
	Payload      any
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Payload != nil && e.CallbackName != "":
		return fmt.Sprintf("%v (%s): %+v", e.Err, e.CallbackName, e.Payload)
	case e.Payload != nil:
		return fmt.Sprintf("%v: %+v", e.Err, e.Payload)
	case e.CallbackName != "":
		return fmt.Sprintf("%v: %s", e.Err, e.CallbackName)
	default:
		return e.Err.Error()
	}
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeProtocol, e.Error()).WithCode(e.CallbackName)
}

// FetchError represents a failure to read a resource through a host capability.
type FetchError struct {
	Err         error
	Locator     string
	Environment entities.Environment
	StatusCode  int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.summary(), e.Err)
}

func (e *FetchError) summary() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s read %s failed with status %d", e.Environment, e.Locator, e.StatusCode)
	}
	return fmt.Sprintf("%s read %s failed", e.Environment, e.Locator)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *FetchError) ToErrorDetail() *entities.ErrorDetail {
	detail := entities.NewErrorDetail(entities.ErrorTypeFetch, e.summary()).
		WithCode(e.Locator).
		WithDetail("locator", e.Locator).
		WithDetail("environment", string(e.Environment)).
		WithCause(causeDetail(e.Err))
	if e.StatusCode > 0 {
		detail.WithDetail("status", strconv.Itoa(e.StatusCode))
	}
	detail.IsNotFound = e.StatusCode == http.StatusNotFound || stdErrors.Is(e.Err, fs.ErrNotExist)
	return detail
}

// CompileError represents a failure to decode or compile a module.
type CompileError struct {
	Err    error
	Source string
	Stage  string // "decode" or "compile"
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Stage, e.Source, e.Err)
}

func (e *CompileError) stage() string {
	if e.Stage == "" {
		return entities.ErrorTypeCompile
	}
	return e.Stage
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CompileError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(e.stage(), fmt.Sprintf("%s %s failed", e.stage(), e.Source)).
		WithCode(e.Source).
		WithDetail("source", e.Source).
		WithCause(causeDetail(e.Err))
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeConfig, e.Error()).WithCode(e.Field)
}
