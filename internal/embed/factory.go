package embed

import (
	"context"
	"fmt"
	"log/slog"
)

// New creates an Embedder from configuration. Remote providers are
// wrapped with retry; when cache is non-nil the result is also cached:
// caller → cache → retry → base.
func New(ctx context.Context, cfg Config, cache Cache, logger *slog.Logger) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Embedder
	var err error
	remote := true

	switch cfg.Provider {
	case ProviderOpenAI:
		base, err = NewOpenAIEmbedder(cfg)
	case ProviderGemini:
		base, err = NewGeminiEmbedder(ctx, cfg)
	case ProviderHash:
		base, remote = NewHashEmbedder(cfg.Dimension), false
	case ProviderMock:
		base, remote = NewMockEmbedder(max(cfg.Dimension, 8)), false
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embedder: %w", cfg.Provider, err)
	}

	e := base
	if remote {
		e = WithRetry(e, cfg.Retry)
		if cache != nil {
			e = WithCache(e, cache, logger)
		}
	}
	return e, nil
}
