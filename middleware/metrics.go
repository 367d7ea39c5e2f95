package middleware

import (
	"context"
	"time"

	"github.com/hupe1980/agenthooks/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsOptions configure the Prometheus metrics middleware.
type MetricsOptions struct {
	// Namespace prefixes all metric names. Defaults to "agenthooks".
	Namespace string
	// Registerer receives the collectors. Defaults to the prometheus
	// default registerer.
	Registerer prometheus.Registerer
}

// Metrics records model call counts, latencies and token usage as Prometheus
// metrics.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration prometheus.Histogram
	tokens   *prometheus.CounterVec
}

// NewMetrics creates the metrics middleware and registers its collectors.
func NewMetrics(optFns ...func(o *MetricsOptions)) *Metrics {
	opts := MetricsOptions{
		Namespace:  "agenthooks",
		Registerer: prometheus.DefaultRegisterer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registerer)

	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "model_calls_total",
			Help:      "Model calls partitioned by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "model_tokens_total",
			Help:      "Token usage partitioned by direction.",
		}, []string{"direction"}),
	}
}

// Name implements Middleware.
func (m *Metrics) Name() string { return "metrics" }

// WrapModelCall implements ModelCallWrapper.
func (m *Metrics) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	m.duration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.calls.WithLabelValues("error").Inc()
		return resp, err
	}

	m.calls.WithLabelValues("success").Inc()
	if resp.Usage != nil {
		m.tokens.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
		m.tokens.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))
	}
	return resp, nil
}
