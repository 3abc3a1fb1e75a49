package embed

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// BatchOptions controls how EmbedAll splits work.
type BatchOptions struct {
	// BatchSize is the number of texts per provider call. Default: 64.
	BatchSize int

	// Concurrency is the number of batches in flight. Default: 4.
	Concurrency int
}

// DefaultBatchOptions returns the batching defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{BatchSize: 64, Concurrency: 4}
}

// ProgressFunc receives the number of texts embedded so far.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in concurrent batches. The result is in input
// order and every vector has the same dimension. The first failing batch
// cancels the others.
func EmbedAll(ctx context.Context, e Embedder, texts []string, opts BatchOptions, progress ProgressFunc) ([][]float32, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBatchOptions().Concurrency
	}

	out := make([][]float32, len(texts))
	total := len(texts)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < total; start += opts.BatchSize {
		end := min(start+opts.BatchSize, total)
		g.Go(func() error {
			vecs, err := e.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return &ErrCountMismatch{Want: end - start, Got: len(vecs)}
			}
			copy(out[start:end], vecs)

			n := done.Add(int64(end - start))
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if _, err := CheckDimensions(out, 0); err != nil {
		return nil, err
	}
	return out, nil
}
