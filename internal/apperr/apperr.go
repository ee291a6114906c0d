// Package apperr defines the typed error kinds and stable error codes
// shared across the plan lifecycle subsystem (store, generator, editor,
// booking orchestrator, replan pipeline).
package apperr

import "fmt"

// Kind is the broad category of failure recognized by the core.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindProviderError      Kind = "provider_error"
	KindForbiddenRollback  Kind = "forbidden_rollback"
)

// ProviderSubkind distinguishes transient (retryable) from terminal
// provider failures.
type ProviderSubkind string

const (
	ProviderTransient ProviderSubkind = "transient"
	ProviderTerminal  ProviderSubkind = "terminal"
)

// Stable error codes surfaced to callers (spec.md §7).
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeBookingFailed       = "BOOKING_FAILED"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeReplanFailed        = "REPLAN_FAILED"
	CodeRollbackExpired     = "ROLLBACK_EXPIRED"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind            Kind
	Code            string
	Message         string
	Details         map[string]interface{}
	ProviderSubkind ProviderSubkind
	cause           error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func new_(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string) *Error { return new_(KindValidation, CodeValidationError, msg) }

func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(msg string) *Error { return new_(KindNotFound, CodeNotFound, msg) }

func NotFoundf(format string, args ...interface{}) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Conflict(msg string) *Error { return new_(KindConflict, CodeConflict, msg) }

func Conflictf(format string, args ...interface{}) *Error {
	return Conflict(fmt.Sprintf(format, args...))
}

func IdempotencyConflict(msg string) *Error {
	return new_(KindConflict, CodeIdempotencyConflict, msg)
}

func StorageUnavailable(cause error) *Error {
	e := new_(KindStorageUnavailable, CodeBookingFailed, "storage unavailable")
	e.Code = "STORAGE_UNAVAILABLE"
	e.cause = cause
	return e
}

func Provider(subkind ProviderSubkind, cause error) *Error {
	e := new_(KindProviderError, CodeProviderError, "provider error")
	e.ProviderSubkind = subkind
	e.cause = cause
	return e
}

func BookingFailed(reason string) *Error {
	return new_(KindConflict, CodeBookingFailed, reason)
}

func ReplanFailed(msg string) *Error { return new_(KindConflict, CodeReplanFailed, msg) }

func RollbackExpired(msg string) *Error {
	return new_(KindForbiddenRollback, CodeRollbackExpired, msg)
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	if !ok {
		return false
	}
	return ae.Kind == kind
}

// WithDetails attaches structured detail fields and returns the receiver
// for chaining at the call site.
func (e *Error) WithDetails(d map[string]interface{}) *Error {
	e.Details = d
	return e
}
