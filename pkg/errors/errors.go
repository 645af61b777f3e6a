// Package errors provides standardized error types for the profiling engine.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for profiling operations
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeStorageFailed    = "STORAGE_FAILED"
	CodeReadinessFailed  = "READINESS_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodePermissionDenied = "PERMISSION_DENIED"
)

// ProfileError represents a profiling error with code, message, and optional details.
type ProfileError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProfileError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ProfileError) Is(target error) bool {
	t, ok := target.(*ProfileError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *ProfileError) WithDetail(key string, value interface{}) *ProfileError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrUnknownColumn    = &ProfileError{Code: CodeInvalidRequest, Message: "column not present in schema"}
	ErrInvalidTableRef  = &ProfileError{Code: CodeInvalidRequest, Message: "invalid table reference"}
	ErrDataSourceNotFound = &ProfileError{Code: CodeNotFound, Message: "data source not found"}
	ErrQueryFailed      = &ProfileError{Code: CodeQueryFailed, Message: "query execution failed"}
	ErrQueryTimeout     = &ProfileError{Code: CodeDeadlineExceeded, Message: "query execution timeout"}
	ErrConnectionFailed = &ProfileError{Code: CodeConnectionFailed, Message: "query engine connection failed"}
	ErrNotReady         = &ProfileError{Code: CodeReadinessFailed, Message: "data source is not ready"}
)

// New creates a new ProfileError with the given code and message.
func New(code, message string) *ProfileError {
	return &ProfileError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a ProfileError.
func Wrap(err error, code, message string) *ProfileError {
	if err == nil {
		return nil
	}
	return &ProfileError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *ProfileError {
	if err == nil {
		return nil
	}
	return &ProfileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsQueryFailed checks if an error is a query execution error.
func IsQueryFailed(err error) bool {
	var profErr *ProfileError
	if errors.As(err, &profErr) {
		return profErr.Code == CodeQueryFailed
	}
	return false
}

// IsInvalidRequest checks if an error is an invalid request error.
func IsInvalidRequest(err error) bool {
	var profErr *ProfileError
	if errors.As(err, &profErr) {
		return profErr.Code == CodeInvalidRequest
	}
	return false
}

// IsReadinessFailed checks if an error is a readiness failure.
func IsReadinessFailed(err error) bool {
	var profErr *ProfileError
	if errors.As(err, &profErr) {
		return profErr.Code == CodeReadinessFailed
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var profErr *ProfileError
	if errors.As(err, &profErr) {
		return profErr.Code
	}
	return CodeInternal
}
