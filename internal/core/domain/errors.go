package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindNotFound
	ErrorKindUnavailable
	ErrorKindTimeout
	ErrorKindBackendFailure
	ErrorKindNotImplemented
	ErrorKindClientTransport
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindUnavailable:
		return "unavailable"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindBackendFailure:
		return "backend_failure"
	case ErrorKindNotImplemented:
		return "not_implemented"
	case ErrorKindClientTransport:
		return "client_transport"
	default:
		return "unknown"
	}
}

// HTTPStatus is the gateway status code reported for this kind
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindUnavailable:
		return http.StatusServiceUnavailable
	case ErrorKindTimeout:
		return http.StatusRequestTimeout
	case ErrorKindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// InferenceError is the typed error every executor and the dispatcher return
type InferenceError struct {
	Err     error
	Service ServiceName
	Message string
	Kind    ErrorKind
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is matches another InferenceError by kind, so errors.Is(err, ErrTimeout) works
func (e *InferenceError) Is(target error) bool {
	t, ok := target.(*InferenceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Service == "" && t.Message == ""
}

func (e *InferenceError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// sentinels for errors.Is
var (
	ErrServiceNotFound    = &InferenceError{Kind: ErrorKindNotFound}
	ErrServiceUnavailable = &InferenceError{Kind: ErrorKindUnavailable}
	ErrInferenceTimeout   = &InferenceError{Kind: ErrorKindTimeout}
	ErrBackendFailure     = &InferenceError{Kind: ErrorKindBackendFailure}
	ErrNotImplemented     = &InferenceError{Kind: ErrorKindNotImplemented}
)

func NewNotFoundError(service ServiceName) *InferenceError {
	return &InferenceError{
		Kind:    ErrorKindNotFound,
		Service: service,
		Message: fmt.Sprintf("service '%s' not found", service),
	}
}

func NewUnavailableError(service ServiceName, reason string) *InferenceError {
	return &InferenceError{
		Kind:    ErrorKindUnavailable,
		Service: service,
		Message: fmt.Sprintf("service '%s' unavailable: %s", service, reason),
	}
}

func NewTimeoutError(service ServiceName, limit time.Duration) *InferenceError {
	return &InferenceError{
		Kind:    ErrorKindTimeout,
		Service: service,
		Message: fmt.Sprintf("local service '%s' exceeded the %s limit", service, formatLimit(limit)),
	}
}

func NewBackendError(service ServiceName, err error) *InferenceError {
	return &InferenceError{
		Kind:    ErrorKindBackendFailure,
		Service: service,
		Message: fmt.Sprintf("inference failed for service '%s'", service),
		Err:     err,
	}
}

func NewNotImplementedError(service ServiceName, kind BackendKind) *InferenceError {
	return &InferenceError{
		Kind:    ErrorKindNotImplemented,
		Service: service,
		Message: fmt.Sprintf("service type '%s' not implemented", kind),
	}
}

// KindOf extracts the kind from any error chain, untyped errors are unknown
func KindOf(err error) ErrorKind {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ErrorKindUnknown
}

// StatusOf maps an error chain to the gateway status code
func StatusOf(err error) int {
	return KindOf(err).HTTPStatus()
}

// formatLimit renders whole seconds as "180s" rather than "3m0s"
func formatLimit(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return d.String()
}
