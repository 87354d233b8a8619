package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc-123")

	id, ok := IDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc-123", id)
}

func TestIDFromContextMissing(t *testing.T) {
	id, ok := IDFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestIDFromContextEmptyValue(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	_, ok := IDFromContext(ctx)
	assert.False(t, ok)
}

func TestEnsureRequestIDGenerates(t *testing.T) {
	id := EnsureRequestID(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestEnsureRequestIDPreservesExisting(t *testing.T) {
	ctx := WithRequestID(context.Background(), "existing")
	assert.Equal(t, "existing", EnsureRequestID(ctx))
}
