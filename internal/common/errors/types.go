package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents bad caller-supplied parameters
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUpstreamUnavailable represents transport-level upstream failures
	ErrTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	// ErrTypeUpstreamRejected represents non-2xx upstream application responses
	ErrTypeUpstreamRejected ErrorType = "upstream_rejected"
	// ErrTypeMissingIdentifier represents a user record without an identifier
	ErrTypeMissingIdentifier ErrorType = "missing_identifier"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// CodeTimeout marks an upstream failure as timeout-class.
const CodeTimeout = "timeout"

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	StatusCode int                    `json:"status_code,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
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

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// UpstreamUnavailable creates an error for a transport failure (refused, DNS, timeout)
func UpstreamUnavailable(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeUpstreamUnavailable,
		Message: msg,
		Cause:   cause,
	}
}

// UpstreamRejected creates an error for a non-2xx application response
func UpstreamRejected(statusCode int, msg string) *AppError {
	return &AppError{
		Type:       ErrTypeUpstreamRejected,
		Message:    msg,
		StatusCode: statusCode,
	}
}

// MissingIdentifier creates the error returned for users that carry no identifier
func MissingIdentifier(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeMissingIdentifier,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
		Cause:   cause,
	}
}

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// IsTimeout reports whether err is a timeout-class upstream failure
func IsTimeout(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == ErrTypeUpstreamUnavailable && appErr.Code == CodeTimeout
}

// StatusCode returns the upstream status code carried by err, or 0
func StatusCode(err error) int {
	appErr, ok := As(err)
	if !ok {
		return 0
	}
	return appErr.StatusCode
}
