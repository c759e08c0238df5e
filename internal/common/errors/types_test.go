package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeUpstreamUnavailable,
				Message: "request failed",
				Code:    CodeTimeout,
			},
			want: "upstream_unavailable: request failed: code=timeout",
		},
		{
			name: "error with status",
			appError: &AppError{
				Type:       ErrTypeUpstreamRejected,
				Message:    "carts request rejected",
				StatusCode: 404,
			},
			want: "upstream_rejected: carts request rejected: status=404",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeUpstreamUnavailable,
				Message: "users request failed",
				Cause:   errors.New("connection refused"),
			},
			want: "upstream_unavailable: users request failed: cause=connection refused",
		},
		{
			name: "error with context",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "pagination rejected",
				Context: map[string]interface{}{
					"limit": -1,
				},
			},
			want: "validation: pagination rejected: context={limit=-1}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := UpstreamUnavailable("wrapped", cause)

	assert.Equal(t, cause, appError.Unwrap())
	assert.True(t, errors.Is(appError, cause))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrTypeValidation, ValidationError("bad").Type)
	assert.Equal(t, ErrTypeMissingIdentifier, MissingIdentifier("no id").Type)
	assert.Equal(t, ErrTypeConfig, ConfigError("bad").Type)
	assert.Equal(t, ErrTypeInternal, InternalError("bad", nil).Type)

	rejected := UpstreamRejected(503, "down")
	assert.Equal(t, ErrTypeUpstreamRejected, rejected.Type)
	assert.Equal(t, 503, rejected.StatusCode)

	limited := RateLimitError("catalog", nil)
	assert.Equal(t, ErrTypeRateLimit, limited.Type)
	assert.Contains(t, limited.Message, "catalog")
}

func TestClassificationThroughWrapping(t *testing.T) {
	base := UpstreamUnavailable("geocode request failed", errors.New("i/o timeout")).WithCode(CodeTimeout)
	wrapped := fmt.Errorf("max retries exceeded: %w", base)

	assert.True(t, IsType(wrapped, ErrTypeUpstreamUnavailable))
	assert.True(t, IsTimeout(wrapped))
	assert.Equal(t, ErrTypeUpstreamUnavailable, GetType(wrapped))

	rejected := fmt.Errorf("fetch carts: %w", UpstreamRejected(404, "not found"))
	assert.False(t, IsTimeout(rejected))
	assert.Equal(t, 404, StatusCode(rejected))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetType(nil))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
	assert.False(t, IsType(nil, ErrTypeValidation))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := ValidationError("bad pagination").WithContext("skip", -3)
	assert.Equal(t, -3, err.Context["skip"])
}
