package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
)

// RetryOptions configure the retry middleware.
type RetryOptions struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int
	// Backoff is the base delay; the wait before attempt n is Backoff * n.
	Backoff time.Duration
	// ShouldRetry decides whether an error is retryable. Defaults to
	// retrying everything.
	ShouldRetry func(err error) bool
	Logger      logging.Logger
}

// Retry re-invokes the model call on failure with linear backoff. The wait
// grows with the attempt number, so transient provider errors get some
// breathing room before the run is failed.
type Retry struct {
	opts RetryOptions
}

// NewRetry creates the retry middleware.
func NewRetry(optFns ...func(o *RetryOptions)) *Retry {
	opts := RetryOptions{
		MaxRetries:  2,
		Backoff:     time.Second,
		ShouldRetry: func(error) bool { return true },
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Retry{opts: opts}
}

// Name implements Middleware.
func (r *Retry) Name() string { return "retry" }

// WrapModelCall implements ModelCallWrapper.
func (r *Retry) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := r.opts.Backoff * time.Duration(attempt)
			r.opts.Logger.Warn("model call failed, retrying",
				"attempt", attempt,
				"max_retries", r.opts.MaxRetries,
				"wait", wait.String(),
				"error", lastErr,
			)
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
		}

		resp, err := next(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !r.opts.ShouldRetry(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", r.opts.MaxRetries+1, lastErr)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
