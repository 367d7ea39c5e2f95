package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agenthooks/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitAllowsBurst(t *testing.T) {
	mw := NewRateLimit(func(o *RateLimitOptions) {
		o.RequestsPerSecond = 1
		o.Burst = 3
	})

	calls := 0
	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		calls++
		return &model.Response{}, nil
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := mw.WrapModelCall(context.Background(), &model.Request{}, handler)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, calls)
	assert.Less(t, time.Since(start), time.Second, "burst capacity must not block")
}

func TestRateLimitRespectsCancellation(t *testing.T) {
	mw := NewRateLimit(func(o *RateLimitOptions) {
		o.RequestsPerSecond = 0.001
		o.Burst = 1
	})

	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		return &model.Response{}, nil
	}

	// Drain the single burst token.
	_, err := mw.WrapModelCall(context.Background(), &model.Request{}, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = mw.WrapModelCall(ctx, &model.Request{}, handler)
	require.Error(t, err, "waiting for a token past the deadline must fail")
}
