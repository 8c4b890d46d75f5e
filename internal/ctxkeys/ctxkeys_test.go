package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestID(ctx)
	assert.False(t, ok)

	_, ok = RequestID(WithRequestID(ctx, ""))
	assert.False(t, ok)

	id, ok := RequestID(WithRequestID(ctx, "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestClientID(t *testing.T) {
	ctx := WithClientID(context.Background(), "10.0.0.1")
	id, ok := ClientID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", id)

	_, ok = RequestID(ctx)
	assert.False(t, ok)
}
