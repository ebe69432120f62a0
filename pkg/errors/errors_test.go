package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	err := NewInternalError("something broke")
	assert.Equal(t, "INTERNAL_ERROR: something broke", err.Error())

	cause := fmt.Errorf("disk full")
	wrapped := NewInternalError("something broke").WithCause(cause)
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestTypedConstructors(t *testing.T) {
	timeout := NewTimeoutError("degraded execution")
	assert.True(t, IsTimeout(timeout))
	assert.False(t, IsOffline(timeout))
	assert.Equal(t, "TIMEOUT", GetCode(timeout))
	assert.Equal(t, "degraded execution", timeout.Details["operation"])

	offline := NewOfflineError("inference-api")
	assert.True(t, IsOffline(offline))
	assert.False(t, IsTimeout(offline))
	assert.Equal(t, "SERVICE_OFFLINE", GetCode(offline))
	assert.Contains(t, offline.Message, `"inference-api"`)

	external := NewExternalError("redis", "ping failed")
	assert.Equal(t, ErrorTypeExternal, GetType(external))
	assert.Equal(t, "redis", external.Details["service"])
}

func TestTypeInspectionThroughWrapping(t *testing.T) {
	inner := NewTimeoutError("probe")
	wrapped := fmt.Errorf("check failed: %w", inner)

	assert.True(t, IsTimeout(wrapped))
	assert.Equal(t, "TIMEOUT", GetCode(wrapped))
	assert.Equal(t, ErrorTypeTimeout, GetType(wrapped))
}

func TestInspectionOfPlainErrors(t *testing.T) {
	plain := fmt.Errorf("plain error")
	assert.False(t, IsTimeout(plain))
	assert.Equal(t, "UNKNOWN_ERROR", GetCode(plain))
	assert.Equal(t, ErrorTypeInternal, GetType(plain))
}
