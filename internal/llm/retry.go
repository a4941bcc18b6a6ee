package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// RetryConfig configures the optional retry wrapper. The wrapper is never
// installed by default: the core's propagation policy is fail-fast, and a
// deployment opts in per provider via config.
type RetryConfig struct {
	MaxRetries int           // attempts beyond the first (0 = passthrough)
	RetryDelay time.Duration // initial backoff delay
	MaxDelay   time.Duration // backoff cap
	Timeout    time.Duration // per-attempt timeout (0 = none)
}

// RetryProvider wraps a Provider with per-attempt timeout and exponential
// backoff on transient failures.
type RetryProvider struct {
	inner  Provider
	config *RetryConfig
}

// NewRetryProvider wraps an existing provider.
func NewRetryProvider(inner Provider, config *RetryConfig) *RetryProvider {
	if config == nil {
		config = &RetryConfig{MaxRetries: 3, RetryDelay: time.Second, MaxDelay: 30 * time.Second}
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	return &RetryProvider{inner: inner, config: config}
}

// Name returns the underlying provider name.
func (r *RetryProvider) Name() string { return r.inner.Name() }

// Complete sends a prompt, retrying transient failures.
func (r *RetryProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	var resp *Response
	err := r.do(ctx, func(attemptCtx context.Context) error {
		var innerErr error
		resp, innerErr = r.inner.Complete(attemptCtx, prompt, opts)
		return innerErr
	})
	return resp, err
}

// Embed requests embeddings, retrying transient failures.
func (r *RetryProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.do(ctx, func(attemptCtx context.Context) error {
		var innerErr error
		vecs, innerErr = r.inner.Embed(attemptCtx, texts)
		return innerErr
	})
	return vecs, err
}

func (r *RetryProvider) do(ctx context.Context, call func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if r.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		}
		err := call(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", r.config.MaxRetries, lastErr)
}

func (r *RetryProvider) backoff(attempt int) time.Duration {
	delay := r.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > r.config.MaxDelay {
			return r.config.MaxDelay
		}
	}
	return delay
}

// retryable reports whether an error is worth another attempt: timeouts,
// rate limits and server-side errors are; caller cancellation and client
// errors are not.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
