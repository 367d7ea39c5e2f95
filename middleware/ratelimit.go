package middleware

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
	"golang.org/x/time/rate"
)

// RateLimitOptions configure the rate limiting middleware.
type RateLimitOptions struct {
	// RequestsPerSecond is the sustained model call rate.
	RequestsPerSecond float64
	// Burst is the number of calls allowed to exceed the sustained rate.
	Burst  int
	Logger logging.Logger
}

// RateLimit throttles model calls with a token bucket. Calls block until a
// token is available or the context is cancelled. One RateLimit instance
// shared across runs enforces a process-wide budget.
type RateLimit struct {
	limiter *rate.Limiter
	opts    RateLimitOptions
}

// NewRateLimit creates the rate limiting middleware.
func NewRateLimit(optFns ...func(o *RateLimitOptions)) *RateLimit {
	opts := RateLimitOptions{
		RequestsPerSecond: 1,
		Burst:             1,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RateLimit{
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
	}
}

// Name implements Middleware.
func (r *RateLimit) Name() string { return "rate_limit" }

// WrapModelCall implements ModelCallWrapper.
func (r *RateLimit) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	if r.limiter.Tokens() < 1 {
		r.opts.Logger.Debug("model call rate limited, waiting for token")
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return next(ctx, req)
}
