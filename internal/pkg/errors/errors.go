package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents an application error with additional context
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches another *AppError by code, so sentinel-style checks work
// through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Common error codes
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeStorage    = "STORAGE_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message).WithDetails(details)
}

// StorageError wraps a failure of the incident store: I/O, constraint
// violations, or a stored value that cannot be decoded.
func StorageError(message string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, message)
}

// CodeOf returns the code of the first AppError in err's chain, or ""
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsStorage reports whether err is (or wraps) a storage error
func IsStorage(err error) bool { return CodeOf(err) == ErrCodeStorage }

// IsValidation reports whether err is (or wraps) a validation error
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }
