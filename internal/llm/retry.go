package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/tidybook/tidybook/internal/logging"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultMaxDelay   = 30000 * time.Millisecond

	jitterRange = 1000 * time.Millisecond
)

// RetryPolicy controls the retry behavior of a RetryClient.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the standard policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// RetryClient decorates a Client with retry and exponential backoff for
// transient failures. Terminal failures are surfaced immediately.
type RetryClient struct {
	inner  Client
	policy RetryPolicy
	log    *logging.Logger

	// Overridable in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewRetryClient wraps inner with the given policy. Zero policy fields
// fall back to defaults.
func NewRetryClient(inner Client, policy RetryPolicy, log *logging.Logger) *RetryClient {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultMaxDelay
	}
	return &RetryClient{
		inner:  inner,
		policy: policy,
		log:    log.Sub("llm.retry"),
		sleep:  sleepCtx,
		jitter: func() time.Duration { return time.Duration(rand.Int63n(int64(jitterRange))) },
	}
}

// Name returns the wrapped provider's name.
func (c *RetryClient) Name() string { return c.inner.Name() }

// Generate attempts the call up to MaxRetries+1 times, backing off
// between attempts. Only rate-limit and server-side failures are
// retried.
func (c *RetryClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying generation")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := c.inner.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, &ProviderError{
		Provider: c.inner.Name(),
		Code:     codeOf(lastErr),
		Message:  "retries exhausted",
		Cause:    lastErr,
	}
}

// backoff computes the delay before retry n (0-indexed):
// min(base*2^n + jitter, max).
func (c *RetryClient) backoff(n int) time.Duration {
	if n > 30 {
		return c.policy.MaxDelay
	}
	d := c.policy.BaseDelay<<uint(n) + c.jitter()
	if d > c.policy.MaxDelay || d < 0 {
		d = c.policy.MaxDelay
	}
	return d
}

func codeOf(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return 0
}

// sleepCtx waits for d without holding a thread, aborting if the
// context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
