package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidybook/tidybook/internal/logging"
)

func newTestRetryClient(inner Client, policy RetryPolicy) *RetryClient {
	c := NewRetryClient(inner, policy, logging.Silent())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	c.jitter = func() time.Duration { return 0 }
	return c
}

func TestRetryClientSucceedsFirstTry(t *testing.T) {
	calls := 0
	inner := &MockClient{
		ProviderName: "mock",
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
			calls++
			return &GenerationResult{Text: "hello"}, nil
		},
	}
	c := newTestRetryClient(inner, DefaultRetryPolicy())

	res, err := c.Generate(context.Background(), GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, 1, calls)
}

func TestRetryClientRetriesTransientFailures(t *testing.T) {
	calls := 0
	inner := &MockClient{
		ProviderName: "mock",
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
			calls++
			if calls < 3 {
				return nil, &ProviderError{Provider: "mock", Code: 429, Message: "rate limited"}
			}
			return &GenerationResult{Text: "eventually"}, nil
		},
	}
	c := newTestRetryClient(inner, DefaultRetryPolicy())

	res, err := c.Generate(context.Background(), GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "eventually", res.Text)
	assert.Equal(t, 3, calls)
}

func TestRetryClientStopsOnTerminalError(t *testing.T) {
	calls := 0
	terminal := &ProviderError{Provider: "mock", Code: 401, Message: "bad key"}
	inner := &MockClient{
		ProviderName: "mock",
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
			calls++
			return nil, terminal
		},
	}
	c := newTestRetryClient(inner, DefaultRetryPolicy())

	_, err := c.Generate(context.Background(), GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 401, provErr.Code)
}

func TestRetryClientExhaustsRetries(t *testing.T) {
	calls := 0
	inner := &MockClient{
		ProviderName: "mock",
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
			calls++
			return nil, &ProviderError{Provider: "mock", Code: 503, Message: "down"}
		},
	}
	c := newTestRetryClient(inner, RetryPolicy{MaxRetries: 2})

	_, err := c.Generate(context.Background(), GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt plus two retries

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 503, provErr.Code)
	assert.Contains(t, provErr.Message, "exhausted")
	require.NotNil(t, provErr.Cause)
}

func TestRetryClientHonorsContextDuringBackoff(t *testing.T) {
	inner := &MockClient{
		ProviderName: "mock",
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
			return nil, &ProviderError{Provider: "mock", Code: 500, Message: "boom"}
		},
	}
	c := NewRetryClient(inner, DefaultRetryPolicy(), logging.Silent())
	c.jitter = func() time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, GenerationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	c := newTestRetryClient(&MockClient{ProviderName: "mock"}, RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	})

	assert.Equal(t, 1*time.Second, c.backoff(0))
	assert.Equal(t, 2*time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 30*time.Second, c.backoff(10))
	assert.Equal(t, 30*time.Second, c.backoff(63)) // shift overflow guard
}

func TestBackoffJitterStaysWithinRange(t *testing.T) {
	c := NewRetryClient(&MockClient{ProviderName: "mock"}, RetryPolicy{
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}, logging.Silent())

	for i := 0; i < 50; i++ {
		d := c.backoff(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &ProviderError{Code: 429}, true},
		{"server error", &ProviderError{Code: 500}, true},
		{"bad gateway", &ProviderError{Code: 502}, true},
		{"unauthorized", &ProviderError{Code: 401}, false},
		{"bad request", &ProviderError{Code: 400}, false},
		{"no code", &ProviderError{}, false},
		{"plain error", errors.New("nope"), false},
		{"wrapped provider error", &ProviderError{Code: 503, Cause: errors.New("inner")}, true},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
