package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (p *flakyProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &Response{Content: "ok"}, nil
}

func (p *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return make([][]float32, len(texts)), nil
}

func (p *flakyProvider) Name() string { return "flaky" }

func retryCfg(maxRetries int) *RetryConfig {
	return &RetryConfig{MaxRetries: maxRetries, RetryDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: errors.New("503 service unavailable")}
	r := NewRetryProvider(inner, retryCfg(3))

	resp, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("429 Too Many Requests")}
	r := NewRetryProvider(inner, retryCfg(2))

	_, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want initial + 2 retries", inner.calls)
	}
}

func TestRetryDoesNotRetryClientErrors(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("401 unauthorized")}
	r := NewRetryProvider(inner, retryCfg(3))

	if _, err := r.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, client errors must not be retried", inner.calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("500 internal")}
	r := NewRetryProvider(inner, retryCfg(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Complete(ctx, &Prompt{}, nil); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if inner.calls > 1 {
		t.Errorf("calls = %d, cancellation should stop retries", inner.calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("HTTP 503: overloaded"), true},
		{"bad gateway", errors.New("502 bad gateway"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"client error", errors.New("400 bad request"), false},
		{"auth", errors.New("invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
