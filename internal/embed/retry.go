package embed

import (
	"context"
	"errors"

	"github.com/abhisek/readlevel/internal/retry"
)

// RetryEmbedder is a decorator that retries transient provider errors
// with exponential backoff and jitter.
type RetryEmbedder struct {
	inner  Embedder
	config retry.Config
}

// WithRetry wraps an Embedder with retry logic.
func WithRetry(e Embedder, cfg retry.Config) Embedder {
	return &RetryEmbedder{inner: e, config: cfg}
}

func (r *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.Do(ctx, r.config, shouldRetry, func(ctx context.Context) ([][]float32, error) {
		return r.inner.Embed(ctx, texts)
	})
}

func (r *RetryEmbedder) ModelID() string { return r.inner.ModelID() }

func (r *RetryEmbedder) Provider() string { return r.inner.Provider() }

// shouldRetry retries throttling and unavailability only. Malformed
// responses and client errors will not get better on a second try.
func shouldRetry(err error) bool {
	var rl *retry.ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var unavail *retry.ErrUnavailable
	return errors.As(err, &unavail)
}
