package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	// General errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Pipeline errors
	ErrCodeStageFailed       ErrorCode = "STAGE_FAILED"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"

	// Collaborator errors
	ErrCodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"
	ErrCodeExternalService         ErrorCode = "EXTERNAL_SERVICE"
	ErrCodeRateLimited             ErrorCode = "RATE_LIMITED"
	ErrCodeCircuitOpen             ErrorCode = "CIRCUIT_OPEN"

	// Storage errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: getHTTPStatusCode(code),
	}
}

// WrapError wraps an existing error with application error context
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve it
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StatusCode: getHTTPStatusCode(code),
	}
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable, ErrCodeCollaboratorUnavailable,
		ErrCodeExternalService, ErrCodeCircuitOpen, ErrCodeDatabaseConnection:
		return http.StatusServiceUnavailable
	case ErrCodeStageFailed, ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasErrorCode checks if the error has a specific error code
func HasErrorCode(err error, code ErrorCode) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}

// Common error constructors for frequently used errors

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrInvalidInput creates an invalid input error
func ErrInvalidInput(field string) *AppError {
	return NewAppError(ErrCodeInvalidInput, fmt.Sprintf("invalid input for field: %s", field))
}

// ErrCollaboratorUnavailable creates an error for an unreachable collaborator service
func ErrCollaboratorUnavailable(service string) *AppError {
	return NewAppError(ErrCodeCollaboratorUnavailable,
		fmt.Sprintf("collaborator service not available: %s", service))
}

// ErrStageFailed creates an error for a failed pipeline stage
func ErrStageFailed(stage string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeStageFailed,
		Message:    fmt.Sprintf("pipeline stage failed: %s", stage),
		Cause:      cause,
		StatusCode: getHTTPStatusCode(ErrCodeStageFailed),
	}
}

// ErrExternalService creates an external service error
func ErrExternalService(service string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeExternalService,
		Message:    fmt.Sprintf("external service error: %s", service),
		Cause:      cause,
		StatusCode: getHTTPStatusCode(ErrCodeExternalService),
	}
}

// ErrDatabaseQuery creates a database query error
func ErrDatabaseQuery(operation string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeDatabaseQuery,
		Message:    fmt.Sprintf("database query failed: %s", operation),
		Cause:      cause,
		StatusCode: getHTTPStatusCode(ErrCodeDatabaseQuery),
	}
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return NewAppError(ErrCodeInternal, message)
}

// ErrInvalidState creates an invalid state error
func ErrInvalidState(current, expected string) *AppError {
	return NewAppErrorWithDetails(ErrCodeInvalidState, "invalid state",
		fmt.Sprintf("current: %s, expected: %s", current, expected))
}
