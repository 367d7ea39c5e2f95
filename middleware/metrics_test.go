package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthooks/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountsOutcomesAndTokens(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := NewMetrics(func(o *MetricsOptions) {
		o.Registerer = reg
	})

	ok := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		return &model.Response{
			FinishReason: "stop",
			Usage:        &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
	fail := func(_ context.Context, _ *model.Request) (*model.Response, error) {
		return nil, errors.New("boom")
	}

	_, err := mw.WrapModelCall(context.Background(), &model.Request{}, ok)
	require.NoError(t, err)
	_, err = mw.WrapModelCall(context.Background(), &model.Request{}, ok)
	require.NoError(t, err)
	_, err = mw.WrapModelCall(context.Background(), &model.Request{}, fail)
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(mw.calls.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mw.calls.WithLabelValues("error")))
	assert.Equal(t, float64(20), testutil.ToFloat64(mw.tokens.WithLabelValues("prompt")))
	assert.Equal(t, float64(10), testutil.ToFloat64(mw.tokens.WithLabelValues("completion")))
}
