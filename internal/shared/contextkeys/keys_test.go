package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "scl90-gate context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")
	ctx = context.WithValue(ctx, ComponentKey, "access")
	ctx = context.WithValue(ctx, OperationKey, "validate")
	ctx = context.WithValue(ctx, AdminSubjectKey, "admin")

	assert.Equal(t, "req-456", ctx.Value(RequestIDKey))
	assert.Equal(t, "access", ctx.Value(ComponentKey))
	assert.Equal(t, "validate", ctx.Value(OperationKey))
	assert.Equal(t, "admin", ctx.Value(AdminSubjectKey))
	assert.Nil(t, ctx.Value(contextKey("requestID-other")))
}
