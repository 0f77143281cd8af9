package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Code doubles as the
// failure kind reported to callers.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Is matches errors sharing the same code so that clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Kind codes shared by every workflow entry point.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeTransactionFailure = "TRANSACTION_FAILURE"
)

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrPermissionDenied   = New(CodePermissionDenied, http.StatusForbidden, "permission denied")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New(CodeConflict, http.StatusConflict, "conflict")
	ErrIllegalTransition  = New(CodeIllegalTransition, http.StatusConflict, "illegal transition")
	ErrPreconditionFailed = New(CodePreconditionFailed, http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrTransaction        = New(CodeTransactionFailure, http.StatusInternalServerError, "transaction failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
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
	clone.Details = nil
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of err carrying the structured key/value payload.
func WithDetails(err *Error, details map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = make(map[string]interface{}, len(err.Details)+len(details))
	for k, v := range err.Details {
		clone.Details[k] = v
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return &clone
}

// KindOf reports the code of err, or the internal code for foreign errors.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
