package llm

import (
	"context"
	"errors"

	"github.com/abhisek/readlevel/internal/retry"
)

type RetryConfig = retry.Config

type retryProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry retries rate limits and outages with backoff. Output that
// fails validation is asked for once more. Truncation is not retried.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &retryProvider{inner: p, cfg: cfg}
}

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	reasked := false
	should := func(err error) bool {
		var invalid *ErrInvalidResponse
		if errors.As(err, &invalid) {
			if reasked {
				return false
			}
			reasked = true
			return true
		}
		return transient(err)
	}
	return retry.Do(ctx, r.cfg, should, func(ctx context.Context) (*Response, error) {
		return r.inner.Generate(ctx, req)
	})
}

func (r *retryProvider) ModelID() string { return r.inner.ModelID() }

func transient(err error) bool {
	var rl *ErrRateLimit
	var down *ErrProviderUnavailable
	return errors.As(err, &rl) || errors.As(err, &down)
}
