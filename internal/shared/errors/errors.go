package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies gateway failures
type ErrorType string

const (
	// ErrorTypeValidation covers missing or mismatched request fields,
	// rejected before any upstream call is made.
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	// ErrorTypeInvalidCredentials covers upstream login rejections.
	ErrorTypeInvalidCredentials ErrorType = "INVALID_CREDENTIALS"
	// ErrorTypeUnauthenticated covers operations that require a session
	// when none exists.
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"
	// ErrorTypeSessionExpired covers upstream rejection of an established
	// credential. The session is cleared as part of signaling this.
	ErrorTypeSessionExpired ErrorType = "SESSION_EXPIRED"
	// ErrorTypeUpstream covers any other non-2xx response from the backend.
	ErrorTypeUpstream ErrorType = "UPSTREAM_ERROR"
	// ErrorTypeInternal covers everything the gateway cannot attribute.
	ErrorTypeInternal ErrorType = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrSessionExpired     = errors.New("session expired")
)

// AppError represents a gateway error with the HTTP shape it surfaces as:
// {statusCode, statusMessage}.
type AppError struct {
	Type          ErrorType `json:"type"`
	StatusCode    int       `json:"statusCode"`
	StatusMessage string    `json:"statusMessage"`
	Cause         error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.StatusMessage, e.Cause)
	}
	return e.StatusMessage
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, statusCode int, statusMessage string) *AppError {
	return &AppError{
		Type:          errorType,
		StatusCode:    statusCode,
		StatusMessage: statusMessage,
	}
}

// NewValidationError creates a validation error. Validation is local: the
// request never reaches the upstream backend.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewInvalidCredentialsError creates a login rejection error. The upstream
// status and message are preserved where available; zero values fall back to
// 401 / "Invalid credentials".
func NewInvalidCredentialsError(statusCode int, message string) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusUnauthorized
	}
	if message == "" {
		message = "Invalid credentials"
	}
	return NewAppError(ErrorTypeInvalidCredentials, statusCode, message)
}

// NewUnauthenticatedError creates an error for operations that require a
// session when none exists.
func NewUnauthenticatedError() *AppError {
	return NewAppError(ErrorTypeUnauthenticated, http.StatusUnauthorized, "Authentication required")
}

// NewSessionExpiredError creates an error for upstream rejection of an
// established credential.
func NewSessionExpiredError() *AppError {
	return NewAppError(ErrorTypeSessionExpired, http.StatusUnauthorized, "Session expired")
}

// NewUpstreamError creates a pass-through error for any other upstream
// failure, defaulting to 500 when the upstream omits a status.
func NewUpstreamError(statusCode int, message string) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	if message == "" {
		message = "Upstream request failed"
	}
	return NewAppError(ErrorTypeUpstream, statusCode, message)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, http.StatusInternalServerError, message)
}

// FieldError represents a validation error for a single field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents a collection of field validation errors
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
}

// NewValidationErrors creates a new validation errors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]FieldError, 0),
	}
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, message string) *ValidationErrors {
	ve.Errors = append(ve.Errors, FieldError{Field: field, Message: message})
	return ve
}

// HasErrors returns true if there are validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError converts validation errors to an AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	if !ve.HasErrors() {
		return nil
	}
	return NewValidationError(ve.Errors[0].Message)
}

// Helper functions for common error scenarios

// AsAppError extracts an AppError from err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

// IsInvalidCredentials checks if an error is a login rejection
func IsInvalidCredentials(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeInvalidCredentials
	}
	return errors.Is(err, ErrInvalidCredentials)
}

// IsUnauthenticated checks if an error signals a missing session
func IsUnauthenticated(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeUnauthenticated
	}
	return errors.Is(err, ErrUnauthenticated)
}

// IsSessionExpired checks if an error signals a rejected credential
func IsSessionExpired(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeSessionExpired
	}
	return errors.Is(err, ErrSessionExpired)
}

// IsUpstream checks if an error is an upstream pass-through
func IsUpstream(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeUpstream
	}
	return false
}
