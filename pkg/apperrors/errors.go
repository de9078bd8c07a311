package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents common error identifiers reused across the API.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "validation_error"
	ErrConflict     ErrorCode = "conflict"
	ErrNotFound     ErrorCode = "not_found"
	ErrUnauthorized ErrorCode = "unauthorized"
	ErrForbidden    ErrorCode = "forbidden"
	ErrTimeout      ErrorCode = "timeout"
	ErrTooMany      ErrorCode = "too_many_requests"
	ErrUnavailable  ErrorCode = "service_unavailable"
	ErrInternal     ErrorCode = "internal_error"
)

// Retryable reports whether clients should offer a retry for this code.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrTimeout, ErrTooMany, ErrUnavailable, ErrInternal:
		return true
	}
	return false
}

// CodeForStatus picks the error code that matches an HTTP status.
func CodeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusTooManyRequests:
		return ErrTooMany
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return ErrUnavailable
	}
	if status >= 500 {
		return ErrInternal
	}
	return ErrValidation
}

// AppError carries additional metadata beyond a regular error.
type AppError struct {
	err        error
	message    string
	code       ErrorCode
	httpStatus int
	fields     map[string]string
}

// New creates a new AppError with supplied details.
func New(message string, status int, code ErrorCode, err error) *AppError {
	return &AppError{
		err:        err,
		message:    message,
		httpStatus: status,
		code:       code,
	}
}

// NotFound builds a 404 error.
func NotFound(message string, err error) *AppError {
	return New(message, http.StatusNotFound, ErrNotFound, err)
}

// Validation builds a 400 error with optional per-field messages.
func Validation(message string, fields map[string]string) *AppError {
	return New(message, http.StatusBadRequest, ErrValidation, nil).WithFields(fields)
}

// Conflict builds a 409 error.
func Conflict(message string, err error) *AppError {
	return New(message, http.StatusConflict, ErrConflict, err)
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	return New(message, http.StatusForbidden, ErrForbidden, nil)
}

// Unavailable builds a 503 error for dependencies that are expected to recover.
func Unavailable(message string, err error) *AppError {
	return New(message, http.StatusServiceUnavailable, ErrUnavailable, err)
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Message returns a safe error message for clients.
func (e *AppError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status to use for this error.
func (e *AppError) StatusCode() int {
	return e.httpStatus
}

// Code returns the application level error code.
func (e *AppError) Code() ErrorCode {
	return e.code
}

// WithFields attaches field-level errors to the AppError.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	copy := *e
	copy.fields = fields
	return &copy
}

// Fields returns any field-level errors recorded on the AppError.
func (e *AppError) Fields() map[string]string {
	return e.fields
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Retryable reports whether err is a transient failure.
func Retryable(err error) bool {
	if appErr, ok := As(err); ok {
		return appErr.code.Retryable()
	}
	return false
}

// Wrap converts a standard error into an AppError if needed.
func Wrap(err error, message string, status int, code ErrorCode) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return New(message, status, code, err)
}
