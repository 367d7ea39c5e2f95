package middleware

import (
	"context"
	"time"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryOptions configure the telemetry middleware.
type TelemetryOptions struct {
	// TracerName names the OpenTelemetry tracer. Defaults to "agenthooks".
	TracerName string
	// TracerProvider overrides the global provider, mainly for tests.
	TracerProvider trace.TracerProvider
	Logger         logging.Logger
}

// Telemetry records an OpenTelemetry span around every model call and logs
// run boundaries. Instrumentation failures never fail the run.
type Telemetry struct {
	tracer trace.Tracer
	opts   TelemetryOptions
}

// NewTelemetry creates the telemetry middleware.
func NewTelemetry(optFns ...func(o *TelemetryOptions)) *Telemetry {
	opts := TelemetryOptions{
		TracerName: "agenthooks",
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	provider := opts.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &Telemetry{
		tracer: provider.Tracer(opts.TracerName),
		opts:   opts,
	}
}

// Name implements Middleware.
func (t *Telemetry) Name() string { return "telemetry" }

// BeforeAgent logs the start of a run.
func (t *Telemetry) BeforeAgent(_ context.Context, hc *HookContext) (*core.Update, error) {
	t.opts.Logger.Info("run started",
		"session_id", hc.SessionID,
		"run_id", hc.RunID,
		"messages", len(hc.State.Messages()),
	)
	return nil, nil
}

// WrapModelCall records a span covering the model invocation, including
// request shape, latency, finish reason and token usage.
func (t *Telemetry) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	ctx, span := t.tracer.Start(ctx, "model.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("model.request.messages", len(req.Contents)),
			attribute.Int("model.request.tools", len(req.Tools)),
			attribute.Bool("model.request.stream", req.Stream),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := next(ctx, req)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int64("model.call.duration_ms", elapsed.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.String("model.response.finish_reason", resp.FinishReason))
	if resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("model.usage.prompt_tokens", resp.Usage.PromptTokens),
			attribute.Int("model.usage.completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	return resp, nil
}

// AfterAgent logs the end of a run.
func (t *Telemetry) AfterAgent(_ context.Context, hc *HookContext) (*core.Update, error) {
	t.opts.Logger.Info("run finished",
		"session_id", hc.SessionID,
		"run_id", hc.RunID,
		"messages", len(hc.State.Messages()),
	)
	return nil, nil
}
