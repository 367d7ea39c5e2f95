package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthooks/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTelemetry(t *testing.T) (*Telemetry, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw := NewTelemetry(func(o *TelemetryOptions) {
		o.TracerProvider = provider
	})
	return mw, recorder
}

func TestTelemetryRecordsSpan(t *testing.T) {
	mw, recorder := newTestTelemetry(t)

	resp, err := mw.WrapModelCall(context.Background(), &model.Request{}, func(_ context.Context, _ *model.Request) (*model.Response, error) {
		return &model.Response{
			FinishReason: "stop",
			Usage:        &model.TokenUsage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.FinishReason)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "model.call", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestTelemetryRecordsError(t *testing.T) {
	mw, recorder := newTestTelemetry(t)

	_, err := mw.WrapModelCall(context.Background(), &model.Request{}, func(_ context.Context, _ *model.Request) (*model.Response, error) {
		return nil, errors.New("provider down")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1, "error must be recorded as a span event")
}
