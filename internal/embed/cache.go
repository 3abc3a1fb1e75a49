package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Cache stores embeddings keyed by model namespace and text hash.
// The SQLite store implements it.
type Cache interface {
	GetEmbeddings(ctx context.Context, model string, keys []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, model string, entries map[string][]float32) error
}

// CachedEmbedder is a decorator that serves repeated texts from a Cache
// and only sends misses to the inner embedder.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	logger *slog.Logger
}

// WithCache wraps an Embedder with a cache.
func WithCache(e Embedder, c Cache, logger *slog.Logger) Embedder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedEmbedder{inner: e, cache: c, logger: logger}
}

// CacheKey returns the cache key for a text.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Namespace returns the cache namespace for an embedder: vectors are only
// shared between identical provider/model pairs.
func Namespace(e Embedder) string {
	return e.Provider() + "/" + e.ModelID()
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ns := Namespace(c.inner)

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(t)
	}

	hits, err := c.cache.GetEmbeddings(ctx, ns, keys)
	if err != nil {
		// A broken cache should not stop training.
		c.logger.Warn("embedding cache read failed", "error", err)
		hits = nil
	}

	// Deduplicate misses so each distinct text is embedded once.
	var missTexts []string
	missPos := make(map[string]int)
	for i, k := range keys {
		if _, ok := hits[k]; ok {
			continue
		}
		if _, ok := missPos[k]; ok {
			continue
		}
		missPos[k] = len(missTexts)
		missTexts = append(missTexts, texts[i])
	}

	c.logger.Debug("embedding cache lookup",
		"namespace", ns, "texts", len(texts), "hits", len(texts)-len(missTexts), "misses", len(missTexts))

	var fresh [][]float32
	if len(missTexts) > 0 {
		fresh, err = c.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missTexts) {
			return nil, &ErrCountMismatch{Want: len(missTexts), Got: len(fresh)}
		}

		entries := make(map[string][]float32, len(missTexts))
		for k, pos := range missPos {
			entries[k] = fresh[pos]
		}
		if err := c.cache.PutEmbeddings(ctx, ns, entries); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}

	out := make([][]float32, len(texts))
	for i, k := range keys {
		if v, ok := hits[k]; ok {
			out[i] = v
			continue
		}
		out[i] = fresh[missPos[k]]
	}
	return out, nil
}

func (c *CachedEmbedder) ModelID() string { return c.inner.ModelID() }

func (c *CachedEmbedder) Provider() string { return c.inner.Provider() }
