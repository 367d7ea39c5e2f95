package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)

	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	require.Error(t, err)
	assert.Equal(t, 3, l.Count())
}

func TestCallLimiterUnlimited(t *testing.T) {
	l := NewCallLimiter(0)

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Increment())
	}

	assert.Equal(t, -1, l.Remaining())
}
