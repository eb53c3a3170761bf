package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Behavior(t *testing.T) {
	err := NewValidationError("invalid input").WithCode("VAL001").WithDetail("field", "code").WithComponent("access")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "VAL001", err.Code)
	assert.Equal(t, "access", err.Component)
	assert.Equal(t, "code", err.Details["field"])
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode)
	assert.Equal(t, "invalid input", err.Error())
}

func TestAppError_WithCause_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInfrastructureError("store unavailable").WithCause(cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store unavailable: connection refused", err.Error())
}

func TestAsAppError_Wrapped(t *testing.T) {
	inner := NewConflictError("duplicate")
	wrapped := fmt.Errorf("create failed: %w", inner)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, appErr)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWrapError(t *testing.T) {
	existing := NewNotFoundError("access code")
	assert.Same(t, existing, WrapError(existing, "ignored"))

	plain := errors.New("boom")
	wrapped := WrapError(plain, "unexpected")
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.ErrorIs(t, wrapped, plain)
}

func TestErrorClassifiers(t *testing.T) {
	nf := NewNotFoundError("access code")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsValidation(nf))
	assert.False(t, IsAuthentication(nf))
	assert.False(t, IsInfrastructure(nf))

	assert.True(t, IsValidation(NewValidationError("bad")))
	assert.True(t, IsAuthentication(NewAuthenticationError("bad")))
	assert.True(t, IsConflict(NewConflictError("dup")))
	assert.True(t, IsInfrastructure(NewInfrastructureError("down")))

	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.True(t, IsInfrastructure(fmt.Errorf("ping: %w", ErrUnavailable)))
	assert.True(t, IsConflict(ErrConflict))
}
