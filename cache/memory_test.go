package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestInMemoryExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory()

	base := time.Now()
	c.now = func() time.Time { return base }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
}

func TestInMemoryDelete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, "k"), "deleting absent key is not an error")
}

func TestInMemoryIsolatesStoredBytes(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory()

	src := []byte("original")
	require.NoError(t, c.Set(ctx, "k", src, 0))
	src[0] = 'X'

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), val)
}
