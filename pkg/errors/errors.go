package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Conversion and registry error taxonomy. Each member maps to a stable code
// the transport layer exposes, so clients can tell invalid input apart from
// a missing ally schema or a failed audit guarantee.
var (
	ErrSchemaUnavailable = New("SCHEMA_UNAVAILABLE", http.StatusUnprocessableEntity, "no classification schema available for nation")
	ErrUnknownMarking    = New("UNKNOWN_MARKING", http.StatusBadRequest, "classification marking not recognized by schema")
	ErrDuplicateTarget   = New("DUPLICATE_TARGET", http.StatusBadRequest, "duplicate target nation code")
	ErrDuplicateVersion  = New("DUPLICATE_VERSION", http.StatusConflict, "schema version already registered for nation")
	ErrIncompleteMapping = New("INCOMPLETE_MAPPING", http.StatusBadRequest, "schema is missing required pivot mappings")
	ErrNoActiveSchema    = New("NO_ACTIVE_SCHEMA", http.StatusUnprocessableEntity, "no active schema for nation at requested time")
	ErrDecryption        = New("DECRYPTION_ERROR", http.StatusInternalServerError, "field decryption failed")
	ErrAuditWriteFailed  = New("AUDIT_WRITE_FAILED", http.StatusInternalServerError, "audit trail could not be written")
	ErrTimeout           = New("TIMEOUT", http.StatusGatewayTimeout, "operation timed out")
)

// Transport-level errors shared by middleware and handlers.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same taxonomy code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
