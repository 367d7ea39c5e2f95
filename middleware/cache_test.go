package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthooks/cache"
	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	mw := NewCache(cache.NewInMemory())

	req := &model.Request{
		Contents: []core.Content{core.NewTextContent("user", "hello")},
	}

	calls := 0
	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		calls++
		return &model.Response{
			Content:      core.NewTextContent("assistant", "hi there"),
			FinishReason: "stop",
		}, nil
	}

	first, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)
	second, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call must be served from cache")
	assert.Equal(t, first.Content.Text(), second.Content.Text())
	assert.Equal(t, first.FinishReason, second.FinishReason)
}

func TestCacheDistinguishesRequests(t *testing.T) {
	ctx := context.Background()
	mw := NewCache(cache.NewInMemory())

	calls := 0
	handler := func(_ context.Context, req *model.Request) (*model.Response, error) {
		calls++
		return &model.Response{
			Content: core.NewTextContent("assistant", "reply to "+req.Contents[0].Text()),
		}, nil
	}

	reqA := &model.Request{Contents: []core.Content{core.NewTextContent("user", "a")}}
	reqB := &model.Request{Contents: []core.Content{core.NewTextContent("user", "b")}}

	respA, err := mw.WrapModelCall(ctx, reqA, handler)
	require.NoError(t, err)
	respB, err := mw.WrapModelCall(ctx, reqB, handler)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.NotEqual(t, respA.Content.Text(), respB.Content.Text())
}

func TestCacheBypassesStreaming(t *testing.T) {
	ctx := context.Background()
	mw := NewCache(cache.NewInMemory())

	req := &model.Request{
		Contents: []core.Content{core.NewTextContent("user", "hello")},
		Stream:   true,
	}

	calls := 0
	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		calls++
		return &model.Response{}, nil
	}

	_, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)
	_, err = mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	ctx := context.Background()
	mw := NewCache(cache.NewInMemory())

	req := &model.Request{Contents: []core.Content{core.NewTextContent("user", "hello")}}

	calls := 0
	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &model.Response{FinishReason: "stop"}, nil
	}

	_, err := mw.WrapModelCall(ctx, req, handler)
	require.Error(t, err)

	resp, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestCachePreservesFunctionCalls(t *testing.T) {
	ctx := context.Background()
	mw := NewCache(cache.NewInMemory())

	req := &model.Request{Contents: []core.Content{core.NewTextContent("user", "use the tool")}}

	calls := 0
	handler := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		calls++
		return &model.Response{
			Content: core.Content{
				Role: "assistant",
				Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        "call_1",
					Name:      "echo",
					Arguments: `{"text":"hi"}`,
				}}},
			},
			FinishReason: "tool_calls",
		}, nil
	}

	_, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)
	cached, err := mw.WrapModelCall(ctx, req, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	fcs := cached.Content.FunctionCalls()
	require.Len(t, fcs, 1)
	assert.Equal(t, "echo", fcs[0].Name)
	assert.Equal(t, `{"text":"hi"}`, fcs[0].Arguments)
}

func TestRequestKeyDeterministic(t *testing.T) {
	req := &model.Request{Contents: []core.Content{core.NewTextContent("user", "x")}}

	k1, err := RequestKey(req)
	require.NoError(t, err)
	k2, err := RequestKey(req)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	other := &model.Request{Contents: []core.Content{core.NewTextContent("user", "y")}}
	k3, err := RequestKey(other)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
